package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpmetrics "customerSegments/app/echo-server/metrics"
	"customerSegments/app/echo-server/router"
	"customerSegments/business/segmentation"
	"customerSegments/business/ticketing"
	"customerSegments/internal/jobs"
	"customerSegments/internal/middleware"
	"customerSegments/internal/repository/llm"
	psqlRepo "customerSegments/internal/repository/postgres"
	redisRepo "customerSegments/internal/repository/redis"
	ticketingRepo "customerSegments/internal/repository/ticketing"
	"customerSegments/internal/rest"
	"customerSegments/internal/scheduler"
	"customerSegments/pkg/config"
	"customerSegments/pkg/database"
	redisdb "customerSegments/pkg/database/redis"
	"customerSegments/pkg/logger"
	"customerSegments/pkg/metrics"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	defer logger.Sync()
	logger.Info("Starting customer segments", "version", cfg.App.Version)

	metrics.Init()
	httpmetrics.Init()

	db, err := database.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close(db)
	if err := psqlRepo.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to migrate database", "error", err)
	}
	logger.Info("Database connected successfully")

	// Redis is optional: scoring falls back to postgres and runs lose the
	// cross-process lock.
	var (
		segmentCache segmentation.SegmentCache
		runLock      jobs.RunLock
	)
	redisClient, err := redisdb.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, continuing without segment cache", "error", err)
	} else {
		defer redisdb.CloseRedisClient(redisClient)
		segmentCache = redisRepo.NewSegmentCache(redisClient, cfg.Redis.SegmentTTL)
		runLock = redisRepo.NewRunLock(redisClient)
	}

	var namer segmentation.Namer
	if cfg.LLM.LLMAPIKey != "" {
		n, err := llm.NewNamer(llm.Config{
			BaseURL:     cfg.LLM.LLMBaseURL,
			APIKey:      cfg.LLM.LLMAPIKey,
			Model:       cfg.LLM.LLMModel,
			RatePerMin:  cfg.LLM.LLMRatePerMin,
			MaxTokens:   cfg.LLM.LLMMaxTokens,
			Temperature: cfg.LLM.LLMTemperature,
		})
		if err != nil {
			logger.Fatal("Failed to init segment namer", "error", err)
		}
		namer = n
	} else {
		logger.Info("LLM naming disabled, using heuristic segment names")
	}

	provider, err := ticketProvider(cfg.Ticketing)
	if err != nil {
		logger.Fatal("Failed to init ticketing provider", "error", err)
	}

	// Init repo
	historyRepo := psqlRepo.NewOrderHistoryRepository(db)
	segmentRepo := psqlRepo.NewSegmentRepository(db)
	profileRepo := psqlRepo.NewProfileRepository(db)

	// Init service
	engineCfg := cfg.SegmentationEngine()
	registry := segmentation.DefaultAxisRegistry()
	discoveryService, err := segmentation.NewDiscoveryService(engineCfg, registry, namer)
	if err != nil {
		logger.Fatal("Failed to init discovery service", "error", err)
	}
	scoringService := segmentation.NewScoringService(engineCfg, registry, historyRepo, segmentRepo, profileRepo, segmentCache)
	ticketService := ticketing.NewService(provider, profileRepo)
	discoveryJob := jobs.NewDiscoveryJob(db, discoveryService, historyRepo, segmentRepo, profileRepo, segmentCache, runLock)

	// Init handler
	segmentHandler := rest.NewSegmentHandler(scoringService)
	ticketHandler := rest.NewTicketHandler(ticketService)
	adminHandler := rest.NewDiscoveryAdminHandler(discoveryJob, 2*time.Hour)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// HTTP error handler
	e.HTTPErrorHandler = middleware.ErrorHandler

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(httpmetrics.Middleware())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", func(c echo.Context) error {
		if err := database.HealthCheck(c.Request().Context(), db); err != nil {
			return c.JSON(http.StatusServiceUnavailable, rest.ResponseError{Message: err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Setup routes
	authRequired := middleware.AuthMiddleware(cfg.JWT.SecretKey)
	api := e.Group("/api/v1")
	router.SetupSegmentRoutes(api, segmentHandler, authRequired)
	router.SetupTicketRoutes(api, ticketHandler, authRequired)
	router.SetupAdminRoutes(api, adminHandler, authRequired, middleware.AdminOnly())

	// Scheduled discovery
	var sched *scheduler.Scheduler
	if tenants := cfg.Scheduler.TenantIDs(); cfg.Scheduler.DiscoveryCron != "" && len(tenants) > 0 {
		sched, err = scheduler.New(cfg.Scheduler.DiscoveryCron, time.UTC, func(ctx context.Context) {
			if err := discoveryJob.RunAll(ctx, tenants); err != nil {
				logger.Error("Scheduled discovery finished with errors", "error", err)
			}
		})
		if err != nil {
			logger.Fatal("Failed to schedule discovery", "error", err)
		}
		sched.Start()
	}

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(ctx); err != nil {
			logger.Warn("Scheduled discovery still running at shutdown", "error", err)
		}
	}

	// Shutdown server
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Server stopped")
}

// ticketProvider returns a nil provider for "none".
func ticketProvider(cfg config.TicketingConfig) (ticketing.Provider, error) {
	switch cfg.Provider {
	case "zendesk":
		return ticketingRepo.NewZendesk(ticketingRepo.ZendeskConfig{
			ZendeskBaseURL:  cfg.ZendeskBaseURL,
			ZendeskEmail:    cfg.ZendeskEmail,
			ZendeskAPIToken: cfg.ZendeskAPIToken,
		}), nil
	case "gorgias":
		return ticketingRepo.NewGorgias(ticketingRepo.GorgiasConfig{
			GorgiasBaseURL:  cfg.GorgiasBaseURL,
			GorgiasUsername: cfg.GorgiasUsername,
			GorgiasAPIKey:   cfg.GorgiasAPIKey,
		}), nil
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown ticketing provider %q", cfg.Provider)
	}
}
