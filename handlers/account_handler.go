package handlers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/sms-dispatch-service/internal/domain"
	"github.com/onurcolak/sms-dispatch-service/internal/middlewares"
	"github.com/onurcolak/sms-dispatch-service/pkg/response"
	"github.com/onurcolak/sms-dispatch-service/pkg/validator"
)

type accountService interface {
	GetBalance(ctx context.Context, accountID int64) (*domain.AccountBalance, error)
	TopUp(ctx context.Context, accountID, amount int64, reason string) (*domain.AccountBalance, error)
	LedgerEntries(ctx context.Context, accountID int64, limit int) ([]domain.LedgerEntry, error)
}

type AccountHandler struct {
	service accountService
}

func NewAccountHandler(service accountService) *AccountHandler {
	return &AccountHandler{service: service}
}

type TopUpRequest struct {
	Amount int64  `json:"amount" validate:"required,min=1"`
	Reason string `json:"reason,omitempty" validate:"max=255"`
}

type balanceView struct {
	AccountID int64 `json:"accountId"`
	Credits   int64 `json:"credits"`
	Reserved  int64 `json:"reserved"`
	Available int64 `json:"available"`
}

func newBalanceView(b *domain.AccountBalance) balanceView {
	return balanceView{
		AccountID: b.AccountID,
		Credits:   b.Credits,
		Reserved:  b.Reserved,
		Available: b.Available(),
	}
}

// GetBalance godoc
// @Summary Get account balance
// @Description Returns credits, the part held by unsettled batches and what is available to spend
// @Tags accounts
// @Produce json
// @Param x-sms-auth-key header string true "API key for messages"
// @Param x-account-id header int true "Account ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/accounts/balance [get]
func (h *AccountHandler) GetBalance(c echo.Context) error {
	balance, err := h.service.GetBalance(c.Request().Context(), middlewares.CurrentAccountID(c))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Ok(c, newBalanceView(balance))
}

// GetLedger godoc
// @Summary List ledger entries
// @Tags accounts
// @Produce json
// @Param x-sms-auth-key header string true "API key for messages"
// @Param x-account-id header int true "Account ID"
// @Param limit query int false "Max entries (default: 50)"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/accounts/ledger [get]
func (h *AccountHandler) GetLedger(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil || l <= 0 || l > 500 {
			return response.BadRequest(c, fmt.Errorf("limit must be between 1 and 500"))
		}
		limit = l
	}

	entries, err := h.service.LedgerEntries(c.Request().Context(), middlewares.CurrentAccountID(c), limit)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, entries)
}

// TopUp godoc
// @Summary Add credits to an account
// @Tags admin
// @Accept json
// @Produce json
// @Param x-sms-auth-key header string true "Admin API key"
// @Param id path int true "Account ID"
// @Param request body TopUpRequest true "Credits to add"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /api/v1/admin/accounts/{id}/credits [post]
func (h *AccountHandler) TopUp(c echo.Context) error {
	accountID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || accountID <= 0 {
		return response.BadRequest(c, fmt.Errorf("invalid account id"))
	}

	var req TopUpRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	balance, err := h.service.TopUp(c.Request().Context(), accountID, req.Amount, req.Reason)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OkWithMessage(c, "Credits added", newBalanceView(balance))
}
