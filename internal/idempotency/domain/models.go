package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ErrAlreadyCommitted is returned by Commit when another request already
// recorded an outcome for the same key.
var ErrAlreadyCommitted = errors.New("idempotency key already committed")

// Attempt is the durable record of one completed signup.
type Attempt struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	KeyHash     string         `gorm:"type:char(64);not null;uniqueIndex:ux_idempotency_attempts_key_hash" json:"key_hash"`
	KeyKind     string         `gorm:"type:varchar(16);not null" json:"key_kind"`
	OwnerEmail  string         `gorm:"type:varchar(320);not null" json:"owner_email"`
	TenantCode  string         `gorm:"type:varchar(12);not null" json:"tenant_code"`
	TenantID    snowflake.ID   `gorm:"not null;index" json:"tenant_id"`
	RequestHash string         `gorm:"type:char(64);not null" json:"request_hash"`
	Response    datatypes.JSON `gorm:"not null" json:"response"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
}

func (Attempt) TableName() string { return "idempotency_attempts" }

// Outcome is the successful signup response that gets replayed.
type Outcome struct {
	TenantID       string `json:"tenantId"`
	OwnerUserID    string `json:"ownerUserId"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
	CheckoutURL    string `json:"checkoutUrl,omitempty"`
}

type CommitRequest struct {
	TenantID    snowflake.ID
	RequestHash string
	Outcome     Outcome
}

// Replay is a previously committed outcome returned instead of re-running
// the signup.
type Replay struct {
	Outcome     Outcome
	KeyKind     string
	RequestHash string
	CreatedAt   time.Time
}
