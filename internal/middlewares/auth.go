package middlewares

import (
	"crypto/subtle"
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/sms-dispatch-service/pkg/response"
)

const (
	APIKeyHeader    = "x-sms-auth-key"
	AccountIDHeader = "x-account-id"

	accountIDKey = "accountID"
)

// secureCompare compares two strings in a way that is safer against timing attacks.
func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func APIKeyAuth(apiKey string) echo.MiddlewareFunc {
	// If the API key is not configured, treat this as a server-side misconfiguration.
	if apiKey == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return response.InternalServerError(
					c,
					fmt.Errorf("API key is not configured for this endpoint group"),
				)
			}
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Get API key from x-sms-auth-key header.
			token := c.Request().Header.Get(APIKeyHeader)
			if token == "" || !secureCompare(token, apiKey) {
				return response.Unauthorized(c)
			}

			return next(c)
		}
	}
}

// AccountID reads the tenant the caller acts for. Authentication of the
// account itself happens upstream; here the header only has to be a positive
// integer.
func AccountID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get(AccountIDHeader)
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				return response.BadRequestWithMessage(c, "missing or invalid "+AccountIDHeader+" header")
			}

			c.Set(accountIDKey, id)
			return next(c)
		}
	}
}

// CurrentAccountID returns the account set by AccountID, or 0.
func CurrentAccountID(c echo.Context) int64 {
	id, _ := c.Get(accountIDKey).(int64)
	return id
}
