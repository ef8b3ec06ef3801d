package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/edupulse/campus-messaging/internal/scheduler"
)

type stubSchedulerProbe struct {
	status scheduler.SchedulerStatus
}

func (s stubSchedulerProbe) GetStatus() scheduler.SchedulerStatus {
	return s.status
}

func TestHealth_ReportsSchedulerComponent(t *testing.T) {
	lastRun := time.Now().Add(-time.Minute)
	h := NewHealthHandler(nil, nil, stubSchedulerProbe{status: scheduler.SchedulerStatus{
		Running:   true,
		LastRunAt: lastRun,
		RunsCount: 4,
	}})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	if err := h.Health(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Health returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		Status     string `json:"status"`
		Components struct {
			Database     map[string]any `json:"database"`
			ReceiptCache map[string]any `json:"receiptCache"`
			Scheduler    map[string]any `json:"scheduler"`
		} `json:"components"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	// No database handle means the service as a whole is down.
	if body.Status != "down" {
		t.Errorf("expected overall status down, got %q", body.Status)
	}
	if got := body.Components.Database["status"]; got != "down" {
		t.Errorf("expected database down, got %v", got)
	}
	if got := body.Components.ReceiptCache["status"]; got != "disabled" {
		t.Errorf("expected receipt cache disabled, got %v", got)
	}
	if got := body.Components.Scheduler["status"]; got != "running" {
		t.Errorf("expected scheduler running, got %v", got)
	}
	if got, ok := body.Components.Scheduler["lastRunAt"].(string); !ok || got != lastRun.Format(time.RFC3339) {
		t.Errorf("expected lastRunAt %s, got %v", lastRun.Format(time.RFC3339), body.Components.Scheduler["lastRunAt"])
	}
	if got := body.Components.Scheduler["runsCount"]; got != float64(4) {
		t.Errorf("expected runsCount 4, got %v", got)
	}
}

func TestHealth_ReportsStoppedScheduler(t *testing.T) {
	h := NewHealthHandler(nil, nil, stubSchedulerProbe{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	if err := h.Health(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Health returned error: %v", err)
	}

	var body struct {
		Components struct {
			Scheduler map[string]any `json:"scheduler"`
		} `json:"components"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if got := body.Components.Scheduler["status"]; got != "stopped" {
		t.Errorf("expected scheduler stopped, got %v", got)
	}
	if _, ok := body.Components.Scheduler["lastRunAt"]; ok {
		t.Errorf("expected no lastRunAt before the first run")
	}
}
