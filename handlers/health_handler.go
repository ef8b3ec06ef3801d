package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"

	"github.com/edupulse/campus-messaging/internal/scheduler"
	"github.com/edupulse/campus-messaging/pkg/redis"
)

type schedulerProbe interface {
	GetStatus() scheduler.SchedulerStatus
}

// HealthHandler reports connectivity of the backing stores and the state of
// the dispatch loop.
type HealthHandler struct {
	db           *sqlx.DB
	cache        *redis.Client
	scheduler    schedulerProbe
	checkTimeout time.Duration
}

func NewHealthHandler(db *sqlx.DB, cache *redis.Client, sched schedulerProbe) *HealthHandler {
	return &HealthHandler{
		db:           db,
		cache:        cache,
		scheduler:    sched,
		checkTimeout: 2 * time.Second,
	}
}

// Health returns overall status with per-component detail: the database, the
// delivery-receipt cache and the scheduler loop. A stopped scheduler is
// reported as stopped, not as a degraded service.
// @Summary Health check
// @Description Returns overall status with database, receipt cache and scheduler state
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.checkTimeout)
	defer cancel()

	overallStatus := "ok"

	dbStatus := "up"
	if h.db == nil {
		dbStatus = "down"
		overallStatus = "down"
	} else if err := h.db.PingContext(ctx); err != nil {
		dbStatus = "down"
		overallStatus = "down"
	}

	cacheStatus := "disabled"
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			cacheStatus = "down"
			overallStatus = "degraded"
		} else {
			cacheStatus = "up"
		}
	}

	schedulerComponent := map[string]any{
		"status": "stopped",
	}
	if h.scheduler != nil {
		status := h.scheduler.GetStatus()
		if status.Running {
			schedulerComponent["status"] = "running"
		}
		if !status.LastRunAt.IsZero() {
			schedulerComponent["lastRunAt"] = status.LastRunAt.Format(time.RFC3339)
			schedulerComponent["runsCount"] = status.RunsCount
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().Format(time.RFC3339),
		"components": map[string]any{
			"database": map[string]any{
				"status": dbStatus,
			},
			"receiptCache": map[string]any{
				"status": cacheStatus,
			},
			"scheduler": schedulerComponent,
		},
	})
}
