package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/onboard/internal/config"
	credentialdomain "github.com/smallbiznis/onboard/internal/credential/domain"
	"github.com/smallbiznis/onboard/internal/observability"
	obsmetrics "github.com/smallbiznis/onboard/internal/observability/metrics"
	"github.com/smallbiznis/onboard/internal/ratelimit"
	recoverydomain "github.com/smallbiznis/onboard/internal/recovery/domain"
	signupdomain "github.com/smallbiznis/onboard/internal/signup/domain"
	"github.com/smallbiznis/onboard/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeSignup struct {
	got    signupdomain.Request
	calls  int
	result *signupdomain.Result
	err    error
}

func (f *fakeSignup) Signup(_ context.Context, req signupdomain.Request) (*signupdomain.Result, error) {
	f.calls++
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestServer(t *testing.T, svc signupdomain.Service) *gin.Engine {
	return newTestServerWithLimiter(t, svc, nil)
}

func newTestServerWithLimiter(t *testing.T, svc signupdomain.Service, limiter *ratelimit.SignupLimiter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	httpMetrics, err := obsmetrics.NewHTTPMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	engine := NewEngine(observability.Config{}, httpMetrics)
	NewServer(ServerParams{
		Engine:    engine,
		Cfg:       config.Config{HTTPAddr: ":0"},
		SignupSvc: svc,
		Limiter:   limiter,
	})
	return engine
}

func doSignup(t *testing.T, engine *gin.Engine, body, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/public/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

const validBody = `{"companyName":"Acme Inc","ownerEmail":"owner@acme.test","password":"s3cret-pass","planId":"100","currency":"usd"}`

func TestSignupCreated(t *testing.T) {
	svc := &fakeSignup{result: &signupdomain.Result{
		TenantID:       "11",
		OwnerUserID:    "12",
		SubscriptionID: "sub_1",
		CheckoutURL:    "https://pay.test/c/1",
	}}
	engine := newTestServer(t, svc)

	rec := doSignup(t, engine, validBody, "key-1")
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "11", resp["tenantId"])
	assert.Equal(t, "12", resp["ownerUserId"])
	assert.Equal(t, "sub_1", resp["subscriptionId"])
	assert.Equal(t, "https://pay.test/c/1", resp["checkoutUrl"])
	assert.NotContains(t, resp, "idempotent")

	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, "key-1", svc.got.IdempotencyKey)
	assert.Equal(t, "Acme Inc", svc.got.CompanyName)
	assert.Equal(t, "100", svc.got.PlanID)
	assert.NotEmpty(t, svc.got.RemoteIP)
}

func TestSignupReplayReturnsOK(t *testing.T) {
	svc := &fakeSignup{result: &signupdomain.Result{TenantID: "11", OwnerUserID: "12", Replayed: true}}
	engine := newTestServer(t, svc)

	rec := doSignup(t, engine, validBody, "key-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["idempotent"])
	assert.NotContains(t, resp, "subscriptionId")
	assert.NotContains(t, resp, "checkoutUrl")
}

func TestSignupAcceptsNumericPlanID(t *testing.T) {
	svc := &fakeSignup{result: &signupdomain.Result{TenantID: "1", OwnerUserID: "2"}}
	engine := newTestServer(t, svc)

	body := `{"companyName":"Acme","ownerEmail":"o@acme.test","password":"s3cret-pass","planId":100}`
	rec := doSignup(t, engine, body, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "100", svc.got.PlanID)
}

func TestSignupInvalidJSON(t *testing.T) {
	svc := &fakeSignup{}
	engine := newTestServer(t, svc)

	rec := doSignup(t, engine, `{"companyName":`, "key-1")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, signupdomain.CodeValidation, resp.Error)
	require.Len(t, resp.Issues, 1)
	assert.Equal(t, "body", resp.Issues[0].Field)
	assert.Zero(t, svc.calls)
}

func TestSignupBodyTooLarge(t *testing.T) {
	svc := &fakeSignup{}
	engine := newTestServer(t, svc)

	body := fmt.Sprintf(`{"companyName":%q}`, strings.Repeat("a", maxSignupBodyBytes+1))
	rec := doSignup(t, engine, body, "key-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.calls)
}

func TestSignupErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", validation.NewError("ownerEmail", "email", "must be a valid email"), http.StatusBadRequest, signupdomain.CodeValidation},
		{"captcha", signupdomain.ErrCaptchaFailed, http.StatusBadRequest, signupdomain.CodeCaptchaFailed},
		{"recovery", recoverydomain.ErrInvalidToken, http.StatusBadRequest, signupdomain.CodeInvalidRecoveryToken},
		{"plan missing", signupdomain.ErrPlanNotFound, http.StatusNotFound, signupdomain.CodePlanNotFound},
		{"plan gated", signupdomain.ErrPlanNotAvailable, http.StatusForbidden, signupdomain.CodePlanNotAvailable},
		{"config missing", credentialdomain.ErrConfigMissing, http.StatusServiceUnavailable, signupdomain.CodeConfigMissingPlatform},
		{"scope violation", credentialdomain.ErrScopeViolation, http.StatusServiceUnavailable, signupdomain.CodeCredentialScopeViolation},
		{"gateway", fmt.Errorf("%w: declined", signupdomain.ErrSubscriptionCreateFailed), http.StatusBadGateway, signupdomain.CodeSubscriptionCreateFailed},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, signupdomain.CodeInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := newTestServer(t, &fakeSignup{err: tc.err})
			rec := doSignup(t, engine, validBody, "key-1")
			require.Equal(t, tc.status, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.code, resp.Error)
		})
	}
}

func TestSignupValidationIssuesInBody(t *testing.T) {
	verr := &validation.Error{Issues: []validation.Issue{
		{Field: "companyName", Code: "required", Message: "is required"},
		{Field: "password", Code: "min", Message: "must be at least 8 characters"},
	}}
	engine := newTestServer(t, &fakeSignup{err: verr})

	rec := doSignup(t, engine, validBody, "key-1")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Issues, 2)
	assert.Equal(t, "companyName", resp.Issues[0].Field)
	assert.Equal(t, "password", resp.Issues[1].Field)
}

func TestUnknownRouteNotFound(t *testing.T) {
	engine := newTestServer(t, &fakeSignup{})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, codeNotFound, resp.Error)
}

func TestHealth(t *testing.T) {
	engine := newTestServer(t, &fakeSignup{})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestClassifyErrorForLog(t *testing.T) {
	kind, code := classifyErrorForLog(signupdomain.ErrCaptchaFailed)
	assert.Equal(t, "validation_error", kind)
	assert.Equal(t, signupdomain.CodeCaptchaFailed, code)

	kind, _ = classifyErrorForLog(signupdomain.ErrPlanNotAvailable)
	assert.Equal(t, "client_error", kind)

	kind, _ = classifyErrorForLog(signupdomain.ErrSubscriptionCreateFailed)
	assert.Equal(t, "dependency_error", kind)

	kind, _ = classifyErrorForLog(errors.New("boom"))
	assert.Equal(t, "internal_error", kind)
}

func TestSignupRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.Config{RateLimit: config.RateLimitConfig{SignupPerMinute: 1, SignupBurst: 1}}
	limiter := ratelimit.NewSignupLimiter(cfg, client, zaptest.NewLogger(t))

	svc := &fakeSignup{result: &signupdomain.Result{TenantID: "1", OwnerUserID: "2"}}
	engine := newTestServerWithLimiter(t, svc, limiter)

	first := doSignup(t, engine, validBody, "key-1")
	require.Equal(t, http.StatusCreated, first.Code)

	second := doSignup(t, engine, validBody, "key-2")
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	var resp errorResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.Equal(t, codeRateLimited, resp.Error)
	assert.Equal(t, 1, svc.calls)
}
