package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
)

// ScopePlatform is the scope of credentials owned by the platform itself,
// as opposed to a tenant's own payment account.
const ScopePlatform = "platform"

// PlatformOrgID marks platform-scoped rows in payment_provider_configs.
const PlatformOrgID int64 = 0

var (
	// ErrConfigMissing means no usable credential is configured for the scope.
	ErrConfigMissing = errors.New("payment credentials not configured")
	// ErrScopeViolation means a credential resolved but may not be used at
	// platform level.
	ErrScopeViolation = errors.New("payment credentials not authorized for scope")
)

var ErrEncryptionKeyMissing = errors.New("provider config secret not configured")

// Credentials are resolved payment-gateway secrets.
type Credentials struct {
	Provider       string
	Scope          string
	SecretKey      string
	PublishableKey string
	Source         string
}

// Resolver returns credentials for a scope or a typed error.
type Resolver interface {
	Resolve(ctx context.Context, scope string) (*Credentials, error)
}

// ProviderConfig is an encrypted provider configuration row.
type ProviderConfig struct {
	ID        int64          `json:"id" gorm:"primaryKey"`
	OrgID     int64          `json:"org_id" gorm:"column:org_id;not null;uniqueIndex:ux_payment_provider_configs_org_provider,priority:1"`
	Provider  string         `json:"provider" gorm:"type:varchar(64);not null;uniqueIndex:ux_payment_provider_configs_org_provider,priority:2"`
	Config    datatypes.JSON `json:"-" gorm:"not null"`
	IsActive  bool           `json:"is_active" gorm:"not null"`
	CreatedAt time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"not null"`
}

func (ProviderConfig) TableName() string { return "payment_provider_configs" }

// ConfigPayload is the decrypted form of ProviderConfig.Config.
type ConfigPayload struct {
	SecretKey      string `json:"secret_key"`
	PublishableKey string `json:"publishable_key,omitempty"`
	Scope          string `json:"scope,omitempty"`
}
