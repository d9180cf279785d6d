package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/sms-dispatch-service/internal/domain"
	"github.com/onurcolak/sms-dispatch-service/internal/export"
	"github.com/onurcolak/sms-dispatch-service/internal/middlewares"
	"github.com/onurcolak/sms-dispatch-service/pkg/response"
)

type messageService interface {
	ListMessages(ctx context.Context, filter domain.MessageFilter, page, pageSize int) ([]domain.Message, int64, error)
	GetMessage(ctx context.Context, accountID, id int64) (*domain.Message, error)
	Cancel(ctx context.Context, accountID, id int64) error
	Delete(ctx context.Context, accountID, id int64) error
	GetStats(ctx context.Context, accountID int64) (*domain.MessageStats, error)
	ExportRows(ctx context.Context, filter domain.MessageFilter) ([]domain.ExportRow, error)
	GetCachedMessages(ctx context.Context, accountID int64) (map[int64]*domain.SentMessageCache, error)
}

type MessageHandler struct {
	service messageService
}

func NewMessageHandler(service messageService) *MessageHandler {
	return &MessageHandler{service: service}
}

// GetAllMessages godoc
// @Summary List messages
// @Description Retrieves a paginated list of the account's messages with optional status and batch filters
// @Tags messages
// @Accept json
// @Produce json
// @Param x-sms-auth-key header string true "API key for messages"
// @Param x-account-id header int true "Account ID"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Param status query string false "Filter by status (scheduled, queued, processing, sent, failed, cancelled)"
// @Param batchId query string false "Filter by batch"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/messages [get]
func (h *MessageHandler) GetAllMessages(c echo.Context) error {
	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	filter, err := parseFilter(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	messages, totalCount, err := h.service.ListMessages(c.Request().Context(), filter, page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, messages, page, pageSize, totalCount)
}

// GetMessage godoc
// @Summary Get a message
// @Tags messages
// @Produce json
// @Param x-sms-auth-key header string true "API key for messages"
// @Param x-account-id header int true "Account ID"
// @Param id path int true "Message ID"
// @Success 200 {object} response.SuccessResponse{data=domain.Message}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/messages/{id} [get]
func (h *MessageHandler) GetMessage(c echo.Context) error {
	id, err := parseMessageID(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	msg, err := h.service.GetMessage(c.Request().Context(), middlewares.CurrentAccountID(c), id)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Ok(c, msg)
}

// CancelMessage godoc
// @Summary Cancel a message
// @Description Cancels a scheduled or queued message. Messages already handed to the gateway cannot be cancelled.
// @Tags messages
// @Produce json
// @Param x-sms-auth-key header string true "API key for messages"
// @Param x-account-id header int true "Account ID"
// @Param id path int true "Message ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/messages/{id}/cancel [post]
func (h *MessageHandler) CancelMessage(c echo.Context) error {
	id, err := parseMessageID(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	if err := h.service.Cancel(c.Request().Context(), middlewares.CurrentAccountID(c), id); err != nil {
		return response.FromError(c, err)
	}

	return response.OkWithMessage(c, "Message cancelled", map[string]any{"id": id})
}

// DeleteMessage godoc
// @Summary Delete a message
// @Description Deletes a sent, failed or cancelled message whose batch has been settled
// @Tags messages
// @Param x-sms-auth-key header string true "API key for messages"
// @Param x-account-id header int true "Account ID"
// @Param id path int true "Message ID"
// @Success 204
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/messages/{id} [delete]
func (h *MessageHandler) DeleteMessage(c echo.Context) error {
	id, err := parseMessageID(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	if err := h.service.Delete(c.Request().Context(), middlewares.CurrentAccountID(c), id); err != nil {
		return response.FromError(c, err)
	}

	return response.NoContent(c)
}

// GetStats godoc
// @Summary Get message statistics
// @Description Returns count of the account's messages by status
// @Tags messages
// @Accept json
// @Produce json
// @Param x-sms-auth-key header string true "API key for messages"
// @Param x-account-id header int true "Account ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/messages/stats [get]
func (h *MessageHandler) GetStats(c echo.Context) error {
	stats, err := h.service.GetStats(c.Request().Context(), middlewares.CurrentAccountID(c))
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, map[string]any{
		"scheduled":  stats.Scheduled,
		"queued":     stats.Queued,
		"processing": stats.Processing,
		"sent":       stats.Sent,
		"failed":     stats.Failed,
		"cancelled":  stats.Cancelled,
		"total":      stats.Total(),
	})
}

// ExportMessages godoc
// @Summary Export messages
// @Description Downloads the account's messages as CSV or XLSX (body, recipient, status, gateway, created_at)
// @Tags messages
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param x-sms-auth-key header string true "API key for messages"
// @Param x-account-id header int true "Account ID"
// @Param format query string false "csv (default) or xlsx"
// @Param status query string false "Filter by status"
// @Param batchId query string false "Filter by batch"
// @Success 200 {file} file
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/messages/export [get]
func (h *MessageHandler) ExportMessages(c echo.Context) error {
	format, err := export.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return response.BadRequest(c, err)
	}

	filter, err := parseFilter(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	rows, err := h.service.ExportRows(c.Request().Context(), filter)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	data, err := export.Render(format, rows)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", format.Filename()))
	return c.Blob(http.StatusOK, format.ContentType(), data)
}

// GetCachedMessages godoc
// @Summary Get cached send receipts
// @Description Returns the account's recent send receipts cached in Redis
// @Tags messages
// @Accept json
// @Produce json
// @Param x-sms-auth-key header string true "API key for messages"
// @Param x-account-id header int true "Account ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/messages/cached [get]
func (h *MessageHandler) GetCachedMessages(c echo.Context) error {
	cached, err := h.service.GetCachedMessages(c.Request().Context(), middlewares.CurrentAccountID(c))
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, cached)
}

func parseFilter(c echo.Context) (domain.MessageFilter, error) {
	filter := domain.MessageFilter{
		AccountID: middlewares.CurrentAccountID(c),
		BatchID:   c.QueryParam("batchId"),
	}

	// Convert status string to pointer (optional filter).
	if raw := c.QueryParam("status"); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}

	return filter, nil
}

func parseMessageID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid message id")
	}
	return id, nil
}

func parsePaginationParams(c echo.Context) (int, int, error) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)

	pageStr := c.QueryParam("page")
	pageSizeStr := c.QueryParam("pageSize")

	// Page
	page := defaultPage
	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			return 0, 0, fmt.Errorf("page must be a positive integer")
		}
		page = p
	}

	// Page size
	pageSize := defaultPageSize
	if pageSizeStr != "" {
		ps, err := strconv.Atoi(pageSizeStr)
		if err != nil || ps <= 0 || ps > maxPageSize {
			return 0, 0, fmt.Errorf("pageSize must be between 1 and %d", maxPageSize)
		}

		pageSize = ps
	}

	return page, pageSize, nil
}
