package domain

import (
	"context"
	"strings"
)

type Service interface {
	Signup(ctx context.Context, req Request) (*Result, error)
}

// Request is the public signup payload. Password is consumed once and never
// persisted or logged.
type Request struct {
	CompanyName string `json:"companyName" validate:"required,max=255"`
	OwnerEmail  string `json:"ownerEmail" validate:"required,email,max=320"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	PlanID      string `json:"planId" validate:"required,max=32"`
	Currency    string `json:"currency,omitempty" validate:"omitempty,iso4217"`
	CouponCode  string `json:"couponCode,omitempty" validate:"omitempty,max=64"`
	Captcha     string `json:"captcha,omitempty" validate:"omitempty,max=4096"`
	Recovery    string `json:"recovery,omitempty" validate:"omitempty,max=256"`

	IdempotencyKey string `json:"-"`
	RemoteIP       string `json:"-"`
}

// Normalize trims every field and canonicalises case where it matters.
func (r Request) Normalize() Request {
	r.CompanyName = strings.TrimSpace(r.CompanyName)
	r.OwnerEmail = strings.ToLower(strings.TrimSpace(r.OwnerEmail))
	r.PlanID = strings.TrimSpace(r.PlanID)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	r.CouponCode = strings.TrimSpace(r.CouponCode)
	r.Captcha = strings.TrimSpace(r.Captcha)
	r.Recovery = strings.TrimSpace(r.Recovery)
	r.IdempotencyKey = strings.TrimSpace(r.IdempotencyKey)
	return r
}

type Result struct {
	TenantID       string
	OwnerUserID    string
	SubscriptionID string
	CheckoutURL    string
	// Replayed is set when the result comes from the idempotency ledger.
	Replayed bool
}
