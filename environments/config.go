package environments

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Gateway  GatewayConfig
	Dispatch DispatchConfig
	Alert    AlertConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// GatewayConfig configures the external messaging gateway client. The channel
// credential itself lives in the credential store, not in the environment.
type GatewayConfig struct {
	URL     string
	Timeout time.Duration
}

type DispatchConfig struct {
	BatchSize       int
	TickInterval    time.Duration
	SendConcurrency int
	MaxAttempts     int
	MaxBodyLength   int
}

type AlertConfig struct {
	WebhookURL     string
	IterationCount int
}

type AuthConfig struct {
	OperatorAPIKey  string
	SchedulerAPIKey string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: GetEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     GetEnv("DB_HOST", "localhost"),
			Port:     GetEnv("DB_PORT", "3306"),
			User:     GetEnv("DB_USER", "campus"),
			Password: GetEnv("DB_PASSWORD", "campus123"),
			DBName:   GetEnv("DB_NAME", "campus_messaging"),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvAsInt("REDIS_DB", 0),
		},
		Gateway: GatewayConfig{
			URL:     GetEnv("GATEWAY_URL", "https://gateway.example.com/v1/messages"),
			Timeout: time.Duration(GetEnvAsInt("GATEWAY_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Dispatch: DispatchConfig{
			BatchSize:       GetEnvAsInt("DISPATCH_BATCH_SIZE", 50),
			TickInterval:    time.Duration(GetEnvAsInt("DISPATCH_TICK_SECONDS", 60)) * time.Second,
			SendConcurrency: GetEnvAsInt("DISPATCH_SEND_CONCURRENCY", 5),
			MaxAttempts:     GetEnvAsInt("DISPATCH_MAX_ATTEMPTS", 3),
			MaxBodyLength:   GetEnvAsInt("DISPATCH_MAX_BODY_LENGTH", 1000),
		},
		Alert: AlertConfig{
			WebhookURL:     GetEnv("ALERT_WEBHOOK_URL", ""),
			IterationCount: GetEnvAsInt("ALERT_ITERATION_COUNT", 0),
		},
		Auth: AuthConfig{
			OperatorAPIKey:  GetEnv("OPERATOR_API_KEY", ""),
			SchedulerAPIKey: GetEnv("SCHEDULER_API_KEY", ""),
		},
	}
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
