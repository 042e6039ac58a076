package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionSignupCompleted = "tenant.signup.completed"
	ActionSignupFailed    = "tenant.signup.failed"

	ActorAnonymous = "anonymous"
	ActorUser      = "user"

	TargetTenant = "tenant"
)

type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	TenantID   *snowflake.ID     `gorm:"index"`
	ActorType  string            `gorm:"type:varchar(32);not null"`
	ActorID    *string           `gorm:"type:varchar(64)"`
	Action     string            `gorm:"type:varchar(128);not null;index"`
	TargetType string            `gorm:"type:varchar(64);not null"`
	TargetID   *string           `gorm:"type:varchar(64)"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb"`
	IPAddress  *string           `gorm:"type:varchar(64)"`
	CreatedAt  time.Time         `gorm:"not null;index"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// Entry is one auditable event. Values under Sensitive are masked before
// they are stored.
type Entry struct {
	TenantID   *snowflake.ID
	ActorType  string
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	IPAddress  string
	Metadata   map[string]any
	Sensitive  map[string]any
}

type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
}

var ErrInvalidAction = errors.New("invalid_action")
