package subscription

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-resty/resty/v2"
	credentialdomain "github.com/smallbiznis/onboard/internal/credential/domain"
	"github.com/smallbiznis/onboard/internal/subscription/domain"
	"go.uber.org/zap"
)

// GatewayActivator talks to the billing gateway over HTTP.
type GatewayActivator struct {
	client *resty.Client
	log    *zap.Logger
}

type createSubscriptionRequest struct {
	TenantID   string `json:"tenant_id"`
	PlanID     string `json:"plan_id"`
	CouponCode string `json:"coupon_code,omitempty"`
	TrialDays  int    `json:"trial_days,omitempty"`
	Currency   string `json:"currency"`
}

type subscriptionResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	CheckoutURL string `json:"checkout_url"`
}

type gatewayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewGatewayActivator(baseURL string, timeout time.Duration, log *zap.Logger) *GatewayActivator {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &GatewayActivator{
		client: client,
		log:    log.Named("subscription.gateway"),
	}
}

func (g *GatewayActivator) CreateSubscription(ctx context.Context, tenantID, planID snowflake.ID, opts domain.CreateOptions) (*domain.Activation, error) {
	if opts.Credentials == nil {
		return nil, fmt.Errorf("%w: missing credentials", domain.ErrGatewayRejected)
	}

	var (
		out    subscriptionResponse
		apiErr gatewayError
	)
	resp, err := g.client.R().
		SetContext(ctx).
		SetAuthToken(opts.Credentials.SecretKey).
		SetHeader("Idempotency-Key", "tenant-"+strconv.FormatInt(tenantID.Int64(), 10)).
		SetBody(createSubscriptionRequest{
			TenantID:   tenantID.String(),
			PlanID:     planID.String(),
			CouponCode: opts.CouponCode,
			TrialDays:  opts.TrialDays,
			Currency:   opts.Currency,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v1/subscriptions")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	if resp.IsError() {
		g.log.Warn("gateway rejected subscription",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("code", apiErr.Code),
			zap.Int64("tenant_id", tenantID.Int64()),
		)
		return nil, fmt.Errorf("%w: status %d %s", domain.ErrGatewayRejected, resp.StatusCode(), apiErr.Code)
	}
	if strings.TrimSpace(out.ID) == "" {
		return nil, fmt.Errorf("%w: empty subscription id", domain.ErrGatewayRejected)
	}

	return &domain.Activation{
		ID:          out.ID,
		CheckoutURL: out.CheckoutURL,
		Status:      strings.ToUpper(out.Status),
	}, nil
}

// CancelSubscription treats 404 as already cancelled.
func (g *GatewayActivator) CancelSubscription(ctx context.Context, subscriptionID string, creds *credentialdomain.Credentials) error {
	req := g.client.R().SetContext(ctx)
	if creds != nil {
		req.SetAuthToken(creds.SecretKey)
	}
	resp, err := req.
		SetPathParam("id", subscriptionID).
		Delete("/v1/subscriptions/{id}")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	if resp.StatusCode() == 404 {
		return nil
	}
	if resp.IsError() {
		return fmt.Errorf("%w: cancel status %d", domain.ErrGatewayRejected, resp.StatusCode())
	}
	return nil
}
