package subscription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	credentialdomain "github.com/smallbiznis/onboard/internal/credential/domain"
	"github.com/smallbiznis/onboard/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var platformCreds = &credentialdomain.Credentials{Scope: credentialdomain.ScopePlatform, SecretKey: "sk_test"}

func TestGatewayCreateSubscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/subscriptions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.Equal(t, "tenant-42", r.Header.Get("Idempotency-Key"))

		var body createSubscriptionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "42", body.TenantID)
		assert.Equal(t, "7", body.PlanID)
		assert.Equal(t, "WELCOME", body.CouponCode)
		assert.Equal(t, 14, body.TrialDays)
		assert.Equal(t, "EUR", body.Currency)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"sub_123","status":"trialing","checkout_url":"https://pay.example/sub_123"}`))
	}))
	defer srv.Close()

	activator := NewGatewayActivator(srv.URL, time.Second, zaptest.NewLogger(t))
	got, err := activator.CreateSubscription(context.Background(), snowflake.ID(42), snowflake.ID(7), domain.CreateOptions{
		CouponCode:  "WELCOME",
		TrialDays:   14,
		Currency:    "EUR",
		Credentials: platformCreds,
	})
	require.NoError(t, err)
	assert.Equal(t, "sub_123", got.ID)
	assert.Equal(t, domain.StatusTrialing, got.Status)
	assert.Equal(t, "https://pay.example/sub_123", got.CheckoutURL)
}

func TestGatewayCreateSubscriptionRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"code":"coupon_invalid","message":"nope"}`))
	}))
	defer srv.Close()

	activator := NewGatewayActivator(srv.URL, time.Second, zaptest.NewLogger(t))
	_, err := activator.CreateSubscription(context.Background(), 1, 2, domain.CreateOptions{Credentials: platformCreds})
	assert.ErrorIs(t, err, domain.ErrGatewayRejected)
}

func TestGatewayCreateSubscriptionTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	activator := NewGatewayActivator(srv.URL, 20*time.Millisecond, zaptest.NewLogger(t))
	_, err := activator.CreateSubscription(context.Background(), 1, 2, domain.CreateOptions{Credentials: platformCreds})
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestGatewayCancelSubscription(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.URL.Path == "/v1/subscriptions/gone" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	activator := NewGatewayActivator(srv.URL, time.Second, zaptest.NewLogger(t))
	require.NoError(t, activator.CancelSubscription(context.Background(), "sub_1", platformCreds))
	require.NoError(t, activator.CancelSubscription(context.Background(), "gone", platformCreds))
	assert.Equal(t, []string{"DELETE /v1/subscriptions/sub_1", "DELETE /v1/subscriptions/gone"}, calls)
}

func TestLocalActivator(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	local := NewLocalActivator(node)

	trial, err := local.CreateSubscription(context.Background(), 1, 2, domain.CreateOptions{TrialDays: 7})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTrialing, trial.Status)
	assert.Empty(t, trial.CheckoutURL)

	paid, err := local.CreateSubscription(context.Background(), 1, 2, domain.CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, paid.Status)
	assert.NotEqual(t, trial.ID, paid.ID)
}
