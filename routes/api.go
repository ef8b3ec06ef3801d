package routes

import (
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/edupulse/campus-messaging/environments"
	"github.com/edupulse/campus-messaging/handlers"
	"github.com/edupulse/campus-messaging/internal/middlewares"
)

// RegisterRoutes registers all API routes with middleware
func RegisterRoutes(
	e *echo.Echo,
	healthHandler *handlers.HealthHandler,
	audienceHandler *handlers.AudienceHandler,
	automationHandler *handlers.AutomationHandler,
	sendHandler *handlers.SendHandler,
	inboundHandler *handlers.InboundHandler,
	eventHandler *handlers.EventHandler,
	schedulerHandler *handlers.SchedulerHandler,
	cfg *environments.Config,
) {
	e.GET("/health", healthHandler.Health)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// API v1 base group
	v1 := e.Group("/api/v1")

	operatorAuth := middlewares.APIKeyAuth(cfg.Auth.OperatorAPIKey)

	audience := v1.Group("/audience", operatorAuth)
	audience.POST("/compute", audienceHandler.ComputeAudience)
	audience.POST("/send", audienceHandler.CreateSend)

	automations := v1.Group("/automations", operatorAuth)
	automations.GET("", automationHandler.ListRules)
	automations.POST("", automationHandler.CreateRule)
	automations.PUT("/:id", automationHandler.UpdateRule)
	automations.DELETE("/:id", automationHandler.DeleteRule)
	automations.POST("/:id/toggle", automationHandler.ToggleRule)

	keywords := v1.Group("/keywords", operatorAuth)
	keywords.GET("", automationHandler.ListKeywordRules)
	keywords.POST("", automationHandler.CreateKeywordRule)
	keywords.PUT("/:id", automationHandler.UpdateKeywordRule)
	keywords.DELETE("/:id", automationHandler.DeleteKeywordRule)

	sends := v1.Group("/sends", operatorAuth)
	sends.GET("", sendHandler.ListSends)
	sends.GET("/stats", sendHandler.GetStats)
	sends.GET("/receipts", sendHandler.GetReceipts)
	sends.GET("/:id", sendHandler.GetSend)
	sends.POST("/:id/cancel", sendHandler.CancelSend)
	sends.POST("/:id/retry", sendHandler.RetrySend)

	v1.POST("/inbound", inboundHandler.HandleInbound, operatorAuth)
	v1.POST("/events", eventHandler.PushEvent, operatorAuth)

	// Scheduler routes with their own API key
	schedulerGroup := v1.Group("/scheduler", middlewares.APIKeyAuth(cfg.Auth.SchedulerAPIKey))

	schedulerGroup.POST("/start", schedulerHandler.StartScheduler)
	schedulerGroup.POST("/stop", schedulerHandler.StopScheduler)
	schedulerGroup.GET("/status", schedulerHandler.GetSchedulerStatus)
}
