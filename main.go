package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/edupulse/campus-messaging/environments"
	"github.com/edupulse/campus-messaging/handlers"
	"github.com/edupulse/campus-messaging/internal/automation"
	"github.com/edupulse/campus-messaging/internal/repository"
	"github.com/edupulse/campus-messaging/internal/scheduler"
	"github.com/edupulse/campus-messaging/internal/service"
	"github.com/edupulse/campus-messaging/pkg/database"
	"github.com/edupulse/campus-messaging/pkg/gateway"
	"github.com/edupulse/campus-messaging/pkg/logger"
	"github.com/edupulse/campus-messaging/pkg/redis"
	"github.com/edupulse/campus-messaging/pkg/validator"
	"github.com/edupulse/campus-messaging/routes"

	_ "github.com/edupulse/campus-messaging/docs" // swagger docs
)

// @title Campus Messaging API
// @version 1.0
// @description Outbound messaging automation for education platforms: audience filtering, automation rules, scheduled dispatch and keyword auto-responses

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @schemes http https
func main() {
	// Optional .env for local development
	if err := godotenv.Load(); err != nil {
		logger.Infof("No .env file found, using environment variables")
	}

	logger.Init()

	// Load config
	cfg := environments.Load()

	// Hard-fail if required secrets are missing
	if cfg.Auth.OperatorAPIKey == "" {
		logger.Fatalf("OPERATOR_API_KEY is required but not set")
	}
	if cfg.Auth.SchedulerAPIKey == "" {
		logger.Fatalf("SCHEDULER_API_KEY is required but not set")
	}

	logger.Infof("Starting Campus Messaging Service...")

	// Init DB
	db, err := database.NewMySQLDB(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed data
	if os.Getenv("SEED_DATA") == "true" {
		if err := database.SeedTestData(db); err != nil {
			logger.Warnf("Failed to seed test data: %v", err)
		}
	}

	// Init redis (delivery receipt cache)
	var redisClient *redis.Client
	redisClient, err = redis.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Warnf("Redis not available, receipt caching disabled: %v", err)
		redisClient = nil
	}

	// Initialize repositories
	populationRepo := repository.NewPopulationRepository(db)
	credentialRepo := repository.NewCredentialRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	sendRepo := repository.NewSendRepository(db)

	// Initialize gateway client
	gatewayClient := gateway.NewClient(cfg.Gateway, credentialRepo)
	logger.Infof("Gateway configured: %s", cfg.Gateway.URL)

	// Initialize services
	automationService := service.NewAutomationService(ruleRepo, credentialRepo)

	// A typed nil pointer would slip past the service's nil check, so the
	// cache argument is only wired when the client actually connected.
	var dispatchService *service.DispatchService
	if redisClient != nil {
		dispatchService = service.NewDispatchService(sendRepo, gatewayClient, redisClient, cfg.Dispatch)
	} else {
		dispatchService = service.NewDispatchService(sendRepo, gatewayClient, nil, cfg.Dispatch)
	}

	// Initialize automation evaluator and event queue
	evaluator := automation.NewEvaluator(ruleRepo, populationRepo, dispatchService)
	eventQueue := automation.NewEventQueue()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize scheduler
	sched := scheduler.NewScheduler(dispatchService, evaluator, eventQueue, cfg.Dispatch.TickInterval)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, redisClient, sched)
	audienceHandler := handlers.NewAudienceHandler(populationRepo, dispatchService)
	automationHandler := handlers.NewAutomationHandler(automationService)
	sendHandler := handlers.NewSendHandler(dispatchService)
	inboundHandler := handlers.NewInboundHandler(automationService, gatewayClient)
	eventHandler := handlers.NewEventHandler(eventQueue)
	schedulerHandler := handlers.NewSchedulerHandler(sched, ctx, cfg)

	// Auto-start scheduler
	if os.Getenv("AUTO_START_SCHEDULER") != "false" {
		logger.Infof("Auto-starting scheduler...")
		if err := sched.StartWithParams(
			ctx,
			int(cfg.Dispatch.TickInterval.Seconds()),
			cfg.Alert.WebhookURL,
			cfg.Alert.IterationCount,
		); err != nil {
			logger.Warnf("Failed to auto-start scheduler: %v", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			"x-auth-key",
		},
	}))

	// Setup routes
	routes.RegisterRoutes(
		e,
		healthHandler,
		audienceHandler,
		automationHandler,
		sendHandler,
		inboundHandler,
		eventHandler,
		schedulerHandler,
		cfg,
	)

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Infof("Server starting on http://localhost%s", addr)
		logger.Infof("Swagger docs available at http://localhost%s/swagger/index.html", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down gracefully...")

	// Cancel context to signal all goroutines to stop
	cancel()

	// Stop scheduler first (with timeout)
	if sched.IsRunning() {
		logger.Infof("Stopping scheduler...")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()

		done := make(chan error, 1)
		go func() {
			done <- sched.Stop()
		}()

		select {
		case err := <-done:
			if err != nil {
				logger.Errorf("Error stopping scheduler: %v", err)
			} else {
				logger.Infof("Scheduler stopped successfully")
			}
		case <-stopCtx.Done():
			logger.Warnf("Scheduler stop timeout, forcing shutdown")
		}
	}

	// Shutdown HTTP server (with timeout)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Infof("Shutting down HTTP server...")
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	} else {
		logger.Infof("HTTP server stopped successfully")
	}

	// Close database connection
	logger.Infof("Closing database connection...")
	if err := db.Close(); err != nil {
		logger.Errorf("Error closing database: %v", err)
	}

	// Close Redis connection
	if redisClient != nil {
		logger.Infof("Closing Redis connection...")
		if err := redisClient.Close(); err != nil {
			logger.Errorf("Error closing Redis: %v", err)
		}
	}

	logger.Infof("Graceful shutdown completed")
}
