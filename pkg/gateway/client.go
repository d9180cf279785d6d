package gateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/onurcolak/sms-dispatch-service/environments"
	"github.com/onurcolak/sms-dispatch-service/internal/domain"
	"github.com/onurcolak/sms-dispatch-service/internal/metrics"
	"github.com/onurcolak/sms-dispatch-service/pkg/logger"
)

const sendPath = "/messages"

type gatewayLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.Gateway, error)
}

type sendPayload struct {
	To     string `json:"to"`
	From   string `json:"from"`
	Body   string `json:"body"`
	Client string `json:"client"`
}

type sendResponse struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

// Client sends messages to an HTTP SMS gateway. Every request carries a
// short-lived HS256 token scoped to the sending account and the gateway.
type Client struct {
	httpClient    *resty.Client
	gateways      gatewayLookup
	signingSecret []byte
	tokenTTL      time.Duration
	now           func() time.Time
}

func NewClient(cfg environments.GatewayConfig, gateways gatewayLookup) *Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient:    client,
		gateways:      gateways,
		signingSecret: []byte(cfg.SigningSecret),
		tokenTTL:      cfg.TokenTTL,
		now:           time.Now,
	}
}

func (c *Client) Send(ctx context.Context, req domain.SendRequest) (*domain.SendReceipt, error) {
	gw, err := c.gateways.GetByID(ctx, req.GatewayID)
	if err != nil {
		return nil, fmt.Errorf("failed to load gateway %d: %w", req.GatewayID, err)
	}
	if gw == nil || !gw.Active {
		return nil, fmt.Errorf("gateway %d unavailable: %w", req.GatewayID, domain.ErrGatewayNotFound)
	}

	token, err := c.signToken(req.AccountID, gw.ID)
	if err != nil {
		return nil, err
	}

	var result sendResponse
	url := strings.TrimRight(gw.BaseURL, "/") + sendPath

	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(sendPayload{
			To:     req.Recipient,
			From:   req.SenderID,
			Body:   req.Body,
			Client: strconv.FormatInt(req.AccountID, 10),
		}).
		SetResult(&result).
		Post(url)

	duration := time.Since(startTime)
	metrics.GatewayLatency.Observe(duration.Seconds())

	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransportFailure, err)
	}

	logger.Debugf("Gateway request to %s completed in %v (status: %d)", url, duration, resp.StatusCode())

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: gateway returned status %d: %s",
			domain.ErrTransportFailure, resp.StatusCode(), truncate(resp.String(), 200))
	}

	if result.MessageID == "" {
		return nil, fmt.Errorf("%w: gateway response has no message id", domain.ErrTransportFailure)
	}

	return &domain.SendReceipt{
		RemoteMessageID: result.MessageID,
		Status:          result.Status,
	}, nil
}

type claims struct {
	AccountID int64 `json:"acc"`
	jwt.RegisteredClaims
}

func (c *Client) signToken(accountID, gatewayID int64) (string, error) {
	if len(c.signingSecret) == 0 {
		return "", errors.New("gateway signing secret is not configured")
	}

	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(accountID, 10),
			Audience:  jwt.ClaimStrings{"gateway:" + strconv.FormatInt(gatewayID, 10)},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.tokenTTL)),
		},
	})

	signed, err := token.SignedString(c.signingSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign gateway token: %w", err)
	}

	return signed, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
