package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/onurcolak/sms-dispatch-service/environments"
	"github.com/onurcolak/sms-dispatch-service/handlers"
	"github.com/onurcolak/sms-dispatch-service/internal/ledger"
	"github.com/onurcolak/sms-dispatch-service/internal/lock"
	"github.com/onurcolak/sms-dispatch-service/internal/middlewares"
	"github.com/onurcolak/sms-dispatch-service/internal/repository"
	"github.com/onurcolak/sms-dispatch-service/internal/scheduler"
	"github.com/onurcolak/sms-dispatch-service/internal/service"
	"github.com/onurcolak/sms-dispatch-service/pkg/database"
	"github.com/onurcolak/sms-dispatch-service/pkg/gateway"
	"github.com/onurcolak/sms-dispatch-service/pkg/logger"
	"github.com/onurcolak/sms-dispatch-service/pkg/redis"
	"github.com/onurcolak/sms-dispatch-service/pkg/validator"
	"github.com/onurcolak/sms-dispatch-service/routes"

	_ "github.com/onurcolak/sms-dispatch-service/docs" // swagger docs
)

// @title SMS Dispatch Service API
// @version 1.0
// @description Multi-tenant SMS dispatch with segment-based credit accounting
// @termsOfService http://swagger.io/terms/

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @schemes http https
func main() {
	// Load config
	cfg := environments.Load()

	logger.Init(logger.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	// Hard-fail if required secrets are missing
	if cfg.Gateway.SigningSecret == "" {
		logger.Fatalf("GATEWAY_SIGNING_SECRET is required but not set")
	}
	if cfg.Auth.MessagesAPIKey == "" {
		logger.Fatalf("MESSAGES_API_KEY is required but not set")
	}
	if cfg.Auth.SchedulerAPIKey == "" {
		logger.Fatalf("SCHEDULER_API_KEY is required but not set")
	}
	if cfg.Auth.AdminAPIKey == "" {
		logger.Warnf("ADMIN_API_KEY is not set, credit top-ups are disabled")
	}

	logger.Infof("Starting SMS Dispatch Service...")

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

	// Initialize repositories
	messageRepo := repository.NewMessageRepository(db)
	balanceRepo := repository.NewBalanceRepository(db)
	gatewayRepo := repository.NewGatewayRepository(db)
	txManager := repository.NewTxManager(db)

	deps := service.Deps{
		Messages:  messageRepo,
		Accounts:  balanceRepo,
		Gateways:  gatewayRepo,
		Transport: gateway.NewClient(cfg.Gateway, gatewayRepo),
		Tx:        txManager,
	}

	// Init redis. The cache is optional; interfaces stay nil without it.
	var projection ledger.Projection
	redisClient, err := redis.NewRedisClient(cfg.Redis, cfg.Ledger.BalanceCacheTTL)
	if err != nil {
		logger.Warnf("Redis not available, caching disabled: %v", err)
		redisClient = nil
	} else {
		projection = redisClient
		deps.Cache = redisClient
	}

	deps.Ledger = ledger.New(balanceRepo, projection, cfg.Ledger.MaxCASRetries)

	// Initialize service
	dispatchService := service.NewDispatchService(deps, cfg.Dispatch, cfg.Recovery)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize scheduler
	sched := scheduler.NewScheduler(dispatchService, cfg.Scheduler.Interval).
		WithAlert(cfg.Alert.WebhookURL, cfg.Alert.IterationCount)

	var lockClient *goredis.Client
	if cfg.Lock.Enabled {
		lockClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		sched.WithLock(lock.NewRedisLock(lockClient, cfg.Lock.Key, cfg.Lock.TTL))
		logger.Infof("Sweep lock enabled: key=%s ttl=%s", cfg.Lock.Key, cfg.Lock.TTL)
	}

	// Initialize handlers
	components := []handlers.Component{{Name: "cache"}, {Name: "lock"}}
	if redisClient != nil {
		components[0].Ping = redisClient.Ping
	}
	if lockClient != nil {
		components[1] = handlers.Component{
			Name:     "lock",
			Required: true,
			Ping: func(ctx context.Context) error {
				return lockClient.Ping(ctx).Err()
			},
		}
	}

	h := routes.Handlers{
		Health:    handlers.NewHealthHandler(db, components...),
		Batch:     handlers.NewBatchHandler(dispatchService),
		Message:   handlers.NewMessageHandler(dispatchService),
		Account:   handlers.NewAccountHandler(dispatchService),
		Scheduler: handlers.NewSchedulerHandler(sched, dispatchService, ctx, cfg),
	}

	// Auto-start scheduler
	if cfg.Scheduler.AutoStart {
		logger.Infof("Auto-starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			logger.Warnf("Failed to auto-start scheduler: %v", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				level = slog.LevelError
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.L().LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middlewares.Metrics())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			middlewares.APIKeyHeader,
			middlewares.AccountIDHeader,
		},
	}))

	// Setup routes
	routes.RegisterRoutes(e, h, cfg)

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

	// Close Redis connections
	if redisClient != nil {
		logger.Infof("Closing Redis connection...")
		if err := redisClient.Close(); err != nil {
			logger.Errorf("Error closing Redis: %v", err)
		}
	}
	if lockClient != nil {
		if err := lockClient.Close(); err != nil {
			logger.Errorf("Error closing lock client: %v", err)
		}
	}

	logger.Infof("Graceful shutdown completed")
}
