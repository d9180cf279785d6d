package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/sms-dispatch-service/environments"
	"github.com/onurcolak/sms-dispatch-service/internal/domain"
	"github.com/onurcolak/sms-dispatch-service/internal/lock"
	"github.com/onurcolak/sms-dispatch-service/internal/scheduler"
	"github.com/onurcolak/sms-dispatch-service/internal/service"
	"github.com/onurcolak/sms-dispatch-service/pkg/response"
	"github.com/onurcolak/sms-dispatch-service/pkg/validator"
)

type recoverer interface {
	RecoverStuck(ctx context.Context, criteria service.RecoveryCriteria) (*service.RecoveryReport, error)
}

type SchedulerHandler struct {
	scheduler *scheduler.Scheduler
	recovery  recoverer
	ctx       context.Context
	config    *environments.Config
}

type StartSchedulerRequest struct {
	IntervalSeconds *int `json:"intervalSeconds,omitempty" validate:"omitempty,min=1"`
}

type RecoverRequest struct {
	Status           string  `json:"status,omitempty" validate:"omitempty,oneof=processing queued"`
	OlderThanSeconds *int    `json:"olderThanSeconds,omitempty" validate:"omitempty,min=0"`
	MaxAttempts      *int    `json:"maxAttempts,omitempty" validate:"omitempty,min=1"`
	MessageIDs       []int64 `json:"messageIds,omitempty" validate:"omitempty,max=1000,dive,min=1"`
	Limit            int     `json:"limit,omitempty" validate:"omitempty,min=0,max=5000"`
}

func NewSchedulerHandler(
	sched *scheduler.Scheduler,
	recovery recoverer,
	ctx context.Context,
	cfg *environments.Config,
) *SchedulerHandler {
	return &SchedulerHandler{
		scheduler: sched,
		recovery:  recovery,
		ctx:       ctx,
		config:    cfg,
	}
}

// StartScheduler godoc
// @Summary Start the dispatch scheduler
// @Description Starts periodic promotion of due messages, stuck message recovery and batch settlement
// @Tags scheduler
// @Accept json
// @Produce json
// @Param x-sms-auth-key header string true "API key for scheduler"
// @Param request body StartSchedulerRequest false "Scheduler parameters (optional)"
// @Success 200 {object} response.SuccessResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/scheduler/start [post]
func (h *SchedulerHandler) StartScheduler(c echo.Context) error {
	if h.scheduler.IsRunning() {
		return response.OkWithMessage(c, "Scheduler is already running", h.scheduler.GetStatus())
	}

	var req StartSchedulerRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	interval := h.config.Scheduler.Interval
	if req.IntervalSeconds != nil {
		interval = time.Duration(*req.IntervalSeconds) * time.Second
	}

	if err := h.scheduler.StartWithParams(
		h.ctx,
		interval,
		h.config.Alert.WebhookURL,
		h.config.Alert.IterationCount,
	); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Scheduler started successfully", h.scheduler.GetStatus())
}

// StopScheduler godoc
// @Summary Stop the dispatch scheduler
// @Tags scheduler
// @Accept json
// @Produce json
// @Param x-sms-auth-key header string true "API key for scheduler"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/scheduler/stop [post]
func (h *SchedulerHandler) StopScheduler(c echo.Context) error {
	if !h.scheduler.IsRunning() {
		return response.OkWithMessage(c, "Scheduler is already stopped", h.scheduler.GetStatus())
	}

	if err := h.scheduler.Stop(); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Scheduler stopped successfully", h.scheduler.GetStatus())
}

// GetSchedulerStatus godoc
// @Summary Get scheduler status
// @Description Returns the scheduler state and the report of its last pass
// @Tags scheduler
// @Accept json
// @Produce json
// @Param x-sms-auth-key header string true "API key for scheduler"
// @Success 200 {object} response.SuccessResponse
// @Router /api/v1/scheduler/status [get]
func (h *SchedulerHandler) GetSchedulerStatus(c echo.Context) error {
	return response.Ok(c, h.scheduler.GetStatus())
}

// RunScheduler godoc
// @Summary Run one scheduler pass now
// @Tags scheduler
// @Produce json
// @Param x-sms-auth-key header string true "API key for scheduler"
// @Success 200 {object} response.SuccessResponse{data=domain.SweepReport}
// @Failure 409 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/scheduler/run [post]
func (h *SchedulerHandler) RunScheduler(c echo.Context) error {
	report, err := h.scheduler.RunNow(c.Request().Context())
	if errors.Is(err, lock.ErrNotAcquired) {
		return response.Conflict(c, err)
	}
	if err != nil && report == nil {
		return response.InternalServerError(c, err)
	}
	if err != nil {
		return response.OkWithMessage(c, "Pass finished with errors: "+err.Error(), report)
	}

	return response.Ok(c, report)
}

// RecoverMessages godoc
// @Summary Recover stuck messages
// @Description Requeues and redispatches messages stuck in processing (or never picked up from queued). Messages out of retry budget are failed for manual follow up.
// @Tags scheduler
// @Accept json
// @Produce json
// @Param x-sms-auth-key header string true "API key for scheduler"
// @Param request body RecoverRequest false "Recovery criteria (optional)"
// @Success 200 {object} response.SuccessResponse{data=service.RecoveryReport}
// @Failure 422 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/scheduler/recover [post]
func (h *SchedulerHandler) RecoverMessages(c echo.Context) error {
	var req RecoverRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	criteria := service.RecoveryCriteria{
		Status:     domain.MessageStatus(req.Status),
		MessageIDs: req.MessageIDs,
		Limit:      req.Limit,
	}
	if req.OlderThanSeconds != nil {
		criteria.OlderThan = time.Duration(*req.OlderThanSeconds) * time.Second
		// 0 means any age; a zero OlderThan would fall back to the default.
		if criteria.OlderThan == 0 {
			criteria.OlderThan = time.Nanosecond
		}
	}
	if req.MaxAttempts != nil {
		criteria.MaxAttempts = *req.MaxAttempts
	}

	report, err := h.recovery.RecoverStuck(c.Request().Context(), criteria)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Ok(c, report)
}
