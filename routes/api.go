package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/onurcolak/sms-dispatch-service/environments"
	"github.com/onurcolak/sms-dispatch-service/handlers"
	"github.com/onurcolak/sms-dispatch-service/internal/middlewares"
)

type Handlers struct {
	Health    *handlers.HealthHandler
	Batch     *handlers.BatchHandler
	Message   *handlers.MessageHandler
	Account   *handlers.AccountHandler
	Scheduler *handlers.SchedulerHandler
}

// RegisterRoutes registers all API routes with middleware
func RegisterRoutes(e *echo.Echo, h Handlers, cfg *environments.Config) {
	e.GET("/health", h.Health.Health)
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API v1 base group
	v1 := e.Group("/api/v1")

	// Tenant routes: messages API key plus the calling account
	tenant := []echo.MiddlewareFunc{
		middlewares.APIKeyAuth(cfg.Auth.MessagesAPIKey),
		middlewares.AccountID(),
	}

	v1.POST("/batches", h.Batch.SubmitBatch, tenant...)
	v1.POST("/sms/analyze", h.Batch.AnalyzeMessage, tenant...)

	messages := v1.Group("/messages", tenant...)
	messages.GET("", h.Message.GetAllMessages)
	messages.GET("/stats", h.Message.GetStats)
	messages.GET("/export", h.Message.ExportMessages)
	messages.GET("/cached", h.Message.GetCachedMessages)
	messages.GET("/:id", h.Message.GetMessage)
	messages.POST("/:id/cancel", h.Message.CancelMessage)
	messages.DELETE("/:id", h.Message.DeleteMessage)

	accounts := v1.Group("/accounts", tenant...)
	accounts.GET("/balance", h.Account.GetBalance)
	accounts.GET("/ledger", h.Account.GetLedger)

	// Admin routes with their own API key
	admin := v1.Group("/admin", middlewares.APIKeyAuth(cfg.Auth.AdminAPIKey))
	admin.POST("/accounts/:id/credits", h.Account.TopUp)

	// Scheduler routes with their own API key
	schedulerGroup := v1.Group("/scheduler", middlewares.APIKeyAuth(cfg.Auth.SchedulerAPIKey))

	schedulerGroup.POST("/start", h.Scheduler.StartScheduler)
	schedulerGroup.POST("/stop", h.Scheduler.StopScheduler)
	schedulerGroup.GET("/status", h.Scheduler.GetSchedulerStatus)
	schedulerGroup.POST("/run", h.Scheduler.RunScheduler)
	schedulerGroup.POST("/recover", h.Scheduler.RecoverMessages)
}
