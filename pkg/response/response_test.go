package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/sms-dispatch-service/internal/domain"
)

func TestPaginated_ComputesTotalPagesCorrectly(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	c := e.NewContext(req, rec)

	// totalCount=45, pageSize=20 -> totalPages = 3
	data := []int{1, 2, 3}
	page := 2
	pageSize := 20
	var totalCount int64 = 45

	if err := Paginated(c, data, page, pageSize, totalCount); err != nil {
		t.Fatalf("Paginated returned error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body PaginatedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if !body.Success {
		t.Errorf("expected Success=true, got false")
	}
	if body.Page != page {
		t.Errorf("expected Page=%d, got %d", page, body.Page)
	}
	if body.PageSize != pageSize {
		t.Errorf("expected PageSize=%d, got %d", pageSize, body.PageSize)
	}
	if body.TotalCount != totalCount {
		t.Errorf("expected TotalCount=%d, got %d", totalCount, body.TotalCount)
	}
	if body.TotalPages != 3 {
		t.Errorf("expected TotalPages=3, got %d", body.TotalPages)
	}
}

func TestFromError_MapsDomainErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		wantCode string
	}{
		{"invalid", domain.InvalidSubmission("no recipients"), http.StatusUnprocessableEntity, domain.CodeInvalidSubmission},
		{"credits", domain.InsufficientCredits(5, 6), http.StatusPaymentRequired, domain.CodeInsufficientCredits},
		{"not found", domain.NewDispatchError(domain.CodeNotFound, "message 7", domain.ErrMessageNotFound), http.StatusNotFound, domain.CodeNotFound},
		{"not cancellable", domain.NewDispatchError(domain.CodeNotCancellable, "message 7 is sent", domain.ErrNotCancellable), http.StatusConflict, domain.CodeNotCancellable},
		{"wrapped", fmt.Errorf("submit: %w", domain.InsufficientCredits(0, 1)), http.StatusPaymentRequired, domain.CodeInsufficientCredits},
		{"unknown", errors.New("db down"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/test", nil), rec)

			if err := FromError(c, tt.err); err != nil {
				t.Fatalf("FromError returned error: %v", err)
			}
			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rec.Code)
			}

			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if body.Success {
				t.Errorf("expected Success=false")
			}
			if body.Code != tt.wantCode {
				t.Errorf("expected Code=%q, got %q", tt.wantCode, body.Code)
			}
		})
	}
}
