package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/sms-dispatch-service/internal/domain"
	"github.com/onurcolak/sms-dispatch-service/internal/middlewares"
	validatorpkg "github.com/onurcolak/sms-dispatch-service/pkg/validator"
)

type fakeAccountService struct {
	balance   *domain.AccountBalance
	limit     int
	toppedUp  int64
	topUpFrom int64
}

func (f *fakeAccountService) GetBalance(ctx context.Context, accountID int64) (*domain.AccountBalance, error) {
	if f.balance == nil {
		return nil, domain.NewDispatchError(domain.CodeNotFound, "account", domain.ErrAccountNotFound)
	}
	return f.balance, nil
}

func (f *fakeAccountService) TopUp(ctx context.Context, accountID, amount int64, reason string) (*domain.AccountBalance, error) {
	f.topUpFrom = accountID
	f.toppedUp = amount
	return &domain.AccountBalance{AccountID: accountID, Credits: amount}, nil
}

func (f *fakeAccountService) LedgerEntries(ctx context.Context, accountID int64, limit int) ([]domain.LedgerEntry, error) {
	f.limit = limit
	return nil, nil
}

func newAccountEcho(svc *fakeAccountService) *echo.Echo {
	e := echo.New()
	e.Validator = validatorpkg.New()
	h := NewAccountHandler(svc)
	e.GET("/api/v1/accounts/balance", h.GetBalance, middlewares.AccountID())
	e.GET("/api/v1/accounts/ledger", h.GetLedger, middlewares.AccountID())
	e.POST("/api/v1/admin/accounts/:id/credits", h.TopUp)
	return e
}

func TestGetBalance_ReportsAvailable(t *testing.T) {
	e := newAccountEcho(&fakeAccountService{balance: &domain.AccountBalance{AccountID: 1, Credits: 10, Reserved: 4}})

	rec := serve(e, http.MethodGet, "/api/v1/accounts/balance", "", "1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		Data balanceView `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body.Data.Available != 6 {
		t.Errorf("expected available 6, got %d", body.Data.Available)
	}
}

func TestGetBalance_UnknownAccount(t *testing.T) {
	e := newAccountEcho(&fakeAccountService{})

	rec := serve(e, http.MethodGet, "/api/v1/accounts/balance", "", "1")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestGetLedger_Limit(t *testing.T) {
	svc := &fakeAccountService{}
	e := newAccountEcho(svc)

	rec := serve(e, http.MethodGet, "/api/v1/accounts/ledger", "", "1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if svc.limit != 50 {
		t.Errorf("expected default limit 50, got %d", svc.limit)
	}

	rec = serve(e, http.MethodGet, "/api/v1/accounts/ledger?limit=501", "", "1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestTopUp(t *testing.T) {
	svc := &fakeAccountService{}
	e := newAccountEcho(svc)

	rec := serve(e, http.MethodPost, "/api/v1/admin/accounts/3/credits", `{"amount": 0}`, "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}

	rec = serve(e, http.MethodPost, "/api/v1/admin/accounts/3/credits", `{"amount": 25, "reason": "invoice 42"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if svc.topUpFrom != 3 || svc.toppedUp != 25 {
		t.Errorf("expected top-up of 25 for account 3, got %d for %d", svc.toppedUp, svc.topUpFrom)
	}

	rec = serve(e, http.MethodPost, "/api/v1/admin/accounts/x/credits", `{"amount": 5}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}
