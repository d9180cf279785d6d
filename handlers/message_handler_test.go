package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/sms-dispatch-service/internal/domain"
	"github.com/onurcolak/sms-dispatch-service/internal/middlewares"
	"github.com/onurcolak/sms-dispatch-service/pkg/response"
)

type fakeMessageService struct {
	filter    domain.MessageFilter
	cancelErr error
	rows      []domain.ExportRow
}

func (f *fakeMessageService) ListMessages(ctx context.Context, filter domain.MessageFilter, page, pageSize int) ([]domain.Message, int64, error) {
	f.filter = filter
	return []domain.Message{{ID: 1, AccountID: filter.AccountID}}, 1, nil
}

func (f *fakeMessageService) GetMessage(ctx context.Context, accountID, id int64) (*domain.Message, error) {
	if id != 1 {
		return nil, domain.NewDispatchError(domain.CodeNotFound, "message", domain.ErrMessageNotFound)
	}
	return &domain.Message{ID: 1, AccountID: accountID}, nil
}

func (f *fakeMessageService) Cancel(ctx context.Context, accountID, id int64) error {
	return f.cancelErr
}

func (f *fakeMessageService) Delete(ctx context.Context, accountID, id int64) error {
	return nil
}

func (f *fakeMessageService) GetStats(ctx context.Context, accountID int64) (*domain.MessageStats, error) {
	return &domain.MessageStats{Sent: 3, Failed: 1}, nil
}

func (f *fakeMessageService) ExportRows(ctx context.Context, filter domain.MessageFilter) ([]domain.ExportRow, error) {
	f.filter = filter
	return f.rows, nil
}

func (f *fakeMessageService) GetCachedMessages(ctx context.Context, accountID int64) (map[int64]*domain.SentMessageCache, error) {
	return nil, errors.New("redis client not configured")
}

func newMessageEcho(svc *fakeMessageService) *echo.Echo {
	e := echo.New()
	h := NewMessageHandler(svc)
	g := e.Group("/api/v1/messages", middlewares.AccountID())
	g.GET("", h.GetAllMessages)
	g.GET("/stats", h.GetStats)
	g.GET("/export", h.ExportMessages)
	g.GET("/cached", h.GetCachedMessages)
	g.GET("/:id", h.GetMessage)
	g.POST("/:id/cancel", h.CancelMessage)
	g.DELETE("/:id", h.DeleteMessage)
	return e
}

func TestGetAllMessages_FiltersByAccountAndStatus(t *testing.T) {
	svc := &fakeMessageService{}
	e := newMessageEcho(svc)

	rec := serve(e, http.MethodGet, "/api/v1/messages?status=failed&batchId=b-1&page=2", "", "9")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if svc.filter.AccountID != 9 {
		t.Errorf("expected account 9, got %d", svc.filter.AccountID)
	}
	if svc.filter.Status == nil || *svc.filter.Status != domain.StatusFailed {
		t.Errorf("expected failed status filter, got %v", svc.filter.Status)
	}
	if svc.filter.BatchID != "b-1" {
		t.Errorf("expected batch filter b-1, got %q", svc.filter.BatchID)
	}

	var body response.PaginatedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body.Page != 2 {
		t.Errorf("expected page 2, got %d", body.Page)
	}
}

func TestGetAllMessages_BadParams(t *testing.T) {
	e := newMessageEcho(&fakeMessageService{})

	for _, path := range []string{
		"/api/v1/messages?status=pending",
		"/api/v1/messages?page=0",
		"/api/v1/messages?pageSize=1000",
	} {
		rec := serve(e, http.MethodGet, path, "", "1")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", path, rec.Code)
		}
	}
}

func TestGetMessage_NotFound(t *testing.T) {
	e := newMessageEcho(&fakeMessageService{})

	rec := serve(e, http.MethodGet, "/api/v1/messages/2", "", "1")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	rec = serve(e, http.MethodGet, "/api/v1/messages/abc", "", "1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestCancelMessage(t *testing.T) {
	svc := &fakeMessageService{}
	e := newMessageEcho(svc)

	rec := serve(e, http.MethodPost, "/api/v1/messages/1/cancel", "", "1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	svc.cancelErr = domain.NewDispatchError(domain.CodeNotCancellable, "message 1 is processing", domain.ErrNotCancellable)
	rec = serve(e, http.MethodPost, "/api/v1/messages/1/cancel", "", "1")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}

	var body response.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body.Code != domain.CodeNotCancellable {
		t.Errorf("expected Code=%q, got %q", domain.CodeNotCancellable, body.Code)
	}
}

func TestDeleteMessage_NoContent(t *testing.T) {
	e := newMessageEcho(&fakeMessageService{})

	rec := serve(e, http.MethodDelete, "/api/v1/messages/1", "", "1")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
}

func TestGetStats(t *testing.T) {
	e := newMessageEcho(&fakeMessageService{})

	rec := serve(e, http.MethodGet, "/api/v1/messages/stats", "", "1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		Data map[string]int64 `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body.Data["total"] != 4 {
		t.Errorf("expected total 4, got %d", body.Data["total"])
	}
}

func TestExportMessages_CSV(t *testing.T) {
	svc := &fakeMessageService{rows: []domain.ExportRow{{
		Body:        "line one\nline two",
		Recipient:   "+905551112233",
		Status:      domain.StatusSent,
		GatewayName: "primary",
		CreatedAt:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}}}
	e := newMessageEcho(svc)

	rec := serve(e, http.MethodGet, "/api/v1/messages/export", "", "1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("expected text/csv, got %q", ct)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, "messages.csv") {
		t.Errorf("expected messages.csv attachment, got %q", cd)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "line one line two,") {
		t.Errorf("unexpected row %q", lines[1])
	}
}

func TestExportMessages_UnknownFormat(t *testing.T) {
	e := newMessageEcho(&fakeMessageService{})

	rec := serve(e, http.MethodGet, "/api/v1/messages/export?format=pdf", "", "1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestGetCachedMessages_WithoutRedis(t *testing.T) {
	e := newMessageEcho(&fakeMessageService{})

	rec := serve(e, http.MethodGet, "/api/v1/messages/cached", "", "1")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}
