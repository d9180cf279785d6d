package handlers

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/sms-dispatch-service/internal/domain"
	"github.com/onurcolak/sms-dispatch-service/internal/middlewares"
	"github.com/onurcolak/sms-dispatch-service/internal/service"
	"github.com/onurcolak/sms-dispatch-service/internal/sms"
	"github.com/onurcolak/sms-dispatch-service/pkg/response"
	"github.com/onurcolak/sms-dispatch-service/pkg/validator"
)

type batchService interface {
	Submit(ctx context.Context, req service.SubmitRequest) (*domain.BatchResult, error)
	Analyze(body string) sms.Analysis
}

type BatchHandler struct {
	service batchService
}

func NewBatchHandler(service batchService) *BatchHandler {
	return &BatchHandler{service: service}
}

type SubmitBatchRequest struct {
	Recipients   []string   `json:"recipients" validate:"required,min=1,max=10000,dive,required"`
	Body         string     `json:"body" validate:"required"`
	SenderID     string     `json:"senderId" validate:"required,senderid"`
	GatewayID    int64      `json:"gatewayId" validate:"required,min=1"`
	ScheduledFor *time.Time `json:"scheduledFor,omitempty"`
}

type AnalyzeRequest struct {
	Body string `json:"body" validate:"required"`
}

// SubmitBatch godoc
// @Summary Submit a message batch
// @Description Validates the draft, holds its cost on the account and creates one message per recipient. Immediate batches are sent before the response.
// @Tags batches
// @Accept json
// @Produce json
// @Param x-sms-auth-key header string true "API key for messages"
// @Param x-account-id header int true "Account ID"
// @Param batch body SubmitBatchRequest true "Batch to submit"
// @Success 201 {object} response.SuccessResponse{data=domain.BatchResult}
// @Failure 400 {object} response.ErrorResponse
// @Failure 402 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/batches [post]
func (h *BatchHandler) SubmitBatch(c echo.Context) error {
	var req SubmitBatchRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	result, err := h.service.Submit(c.Request().Context(), service.SubmitRequest{
		AccountID:    middlewares.CurrentAccountID(c),
		Recipients:   req.Recipients,
		Body:         req.Body,
		SenderID:     req.SenderID,
		GatewayID:    req.GatewayID,
		ScheduledFor: req.ScheduledFor,
	})
	if err != nil {
		return response.FromError(c, err)
	}

	message := "Batch sent"
	if result.Scheduled {
		message = "Batch scheduled"
	}

	return response.Created(c, message, result)
}

// AnalyzeMessage godoc
// @Summary Analyze a draft message
// @Description Returns the encoding, segment count and remaining characters for a draft body
// @Tags batches
// @Accept json
// @Produce json
// @Param x-sms-auth-key header string true "API key for messages"
// @Param draft body AnalyzeRequest true "Draft body"
// @Success 200 {object} response.SuccessResponse{data=sms.Analysis}
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /api/v1/sms/analyze [post]
func (h *BatchHandler) AnalyzeMessage(c echo.Context) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	return response.Ok(c, h.service.Analyze(req.Body))
}
