package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	credentialdomain "github.com/smallbiznis/onboard/internal/credential/domain"
)

const (
	StatusActive     = "ACTIVE"
	StatusTrialing   = "TRIALING"
	StatusIncomplete = "INCOMPLETE"
)

var (
	ErrGatewayRejected    = errors.New("billing gateway rejected the request")
	ErrGatewayUnavailable = errors.New("billing gateway unavailable")
)

type CreateOptions struct {
	CouponCode  string
	TrialDays   int
	Currency    string
	Credentials *credentialdomain.Credentials
}

// Activation is what the billing side returns for a new subscription.
// CheckoutURL is empty when no payment step is required.
type Activation struct {
	ID          string
	CheckoutURL string
	Status      string
}

// Activator creates subscriptions on the billing side. Calls are not
// idempotent from the caller's point of view.
type Activator interface {
	CreateSubscription(ctx context.Context, tenantID, planID snowflake.ID, opts CreateOptions) (*Activation, error)
	CancelSubscription(ctx context.Context, subscriptionID string, creds *credentialdomain.Credentials) error
}
