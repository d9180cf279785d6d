package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onurcolak/sms-dispatch-service/environments"
	"github.com/onurcolak/sms-dispatch-service/internal/domain"
)

const testSecret = "test-signing-secret"

type fakeGateways map[int64]*domain.Gateway

func (f fakeGateways) GetByID(ctx context.Context, id int64) (*domain.Gateway, error) {
	return f[id], nil
}

func newTestClient(baseURL string) *Client {
	return NewClient(environments.GatewayConfig{
		SigningSecret: testSecret,
		TokenTTL:      time.Minute,
		Timeout:       2 * time.Second,
	}, fakeGateways{
		1: {ID: 1, Name: "primary", BaseURL: baseURL, Active: true},
		2: {ID: 2, Name: "disabled", BaseURL: baseURL, Active: false},
	})
}

func TestSend_Success(t *testing.T) {
	var gotAuth string
	var gotBody sendPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"messageId":"remote-1","status":"accepted"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL + "/")

	receipt, err := c.Send(context.Background(), domain.SendRequest{
		AccountID: 42,
		GatewayID: 1,
		SenderID:  "ACME",
		Recipient: "+905551234567",
		Body:      "Hello World",
	})
	require.NoError(t, err)
	assert.Equal(t, "remote-1", receipt.RemoteMessageID)
	assert.Equal(t, "+905551234567", gotBody.To)
	assert.Equal(t, "ACME", gotBody.From)

	require.True(t, strings.HasPrefix(gotAuth, "Bearer "))
	parsed, err := jwt.ParseWithClaims(strings.TrimPrefix(gotAuth, "Bearer "), &claims{}, func(token *jwt.Token) (any, error) {
		return []byte(testSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithAudience("gateway:1"))
	require.NoError(t, err)

	cl := parsed.Claims.(*claims)
	assert.Equal(t, "42", cl.Subject)
	assert.Equal(t, int64(42), cl.AccountID)
}

func TestSend_NonSuccessStatusIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Send(context.Background(), domain.SendRequest{AccountID: 1, GatewayID: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransportFailure))
	assert.Contains(t, err.Error(), "502")
}

func TestSend_MissingMessageIDIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"accepted"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Send(context.Background(), domain.SendRequest{AccountID: 1, GatewayID: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransportFailure))
}

func TestSend_InactiveOrUnknownGateway(t *testing.T) {
	c := newTestClient("http://127.0.0.1:0")

	_, err := c.Send(context.Background(), domain.SendRequest{AccountID: 1, GatewayID: 2})
	assert.True(t, errors.Is(err, domain.ErrGatewayNotFound))

	_, err = c.Send(context.Background(), domain.SendRequest{AccountID: 1, GatewayID: 99})
	assert.True(t, errors.Is(err, domain.ErrGatewayNotFound))
}

func TestSend_RequiresSigningSecret(t *testing.T) {
	c := NewClient(environments.GatewayConfig{Timeout: time.Second}, fakeGateways{
		1: {ID: 1, BaseURL: "http://127.0.0.1:0", Active: true},
	})

	_, err := c.Send(context.Background(), domain.SendRequest{AccountID: 1, GatewayID: 1})
	assert.Error(t, err)
}
