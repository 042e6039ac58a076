package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	TopicTenantSignupCompleted = "signup.tenant.completed"
	TopicUserSignupCompleted   = "signup.user.completed"

	// PlatformBillingStream is the redis stream read by the platform billing group.
	PlatformBillingStream = "onboard.platform.billing"
)

// Event is one published domain event. ID is a ULID assigned at publish time.
type Event struct {
	ID         string
	Topic      string
	Payload    []byte
	OccurredAt time.Time
}

// OutboxEvent is the tenant-domain outbox row.
type OutboxEvent struct {
	ID          snowflake.ID   `gorm:"primaryKey"`
	EventID     string         `gorm:"type:varchar(26);not null;uniqueIndex"`
	TenantID    snowflake.ID   `gorm:"not null;index"`
	Topic       string         `gorm:"type:varchar(128);not null;index"`
	Payload     datatypes.JSON `gorm:"type:jsonb;not null"`
	Published   bool           `gorm:"not null"`
	PublishedAt *time.Time
	CreatedAt   time.Time `gorm:"not null;index"`
}

func (OutboxEvent) TableName() string { return "domain_events" }

type TenantSignupCompleted struct {
	TenantID       string    `json:"tenant_id"`
	TenantCode     string    `json:"tenant_code"`
	TenantName     string    `json:"tenant_name"`
	PlanID         string    `json:"plan_id"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
	Currency       string    `json:"currency"`
	CompletedAt    time.Time `json:"completed_at"`
}

type UserSignupCompleted struct {
	TenantID    string    `json:"tenant_id"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	CompletedAt time.Time `json:"completed_at"`
}
