package logger

import (
	"log"
	"os"
	"strings"
)

var debugEnabled bool

// Init configures logging flags and reads LOG_LEVEL (called once from main).
// Debug output is suppressed unless LOG_LEVEL=debug.
func Init() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	debugEnabled = strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug")
}

func Infof(format string, v ...any) {
	log.Printf("[INFO] "+format, v...)
}

func Warnf(format string, v ...any) {
	log.Printf("[WARN] "+format, v...)
}

func Errorf(format string, v ...any) {
	log.Printf("[ERROR] "+format, v...)
}

func Debugf(format string, v ...any) {
	if !debugEnabled {
		return
	}
	log.Printf("[DEBUG] "+format, v...)
}

func Fatalf(format string, v ...any) {
	log.Fatalf("[FATAL] "+format, v...)
}
