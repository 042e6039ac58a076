package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/onboard/internal/credential/domain"
	"gorm.io/gorm"
)

// DatabaseResolver reads encrypted platform credentials from
// payment_provider_configs.
type DatabaseResolver struct {
	db       *gorm.DB
	provider string
	key      []byte
}

func NewDatabaseResolver(db *gorm.DB, provider string, key []byte) *DatabaseResolver {
	return &DatabaseResolver{
		db:       db,
		provider: strings.ToLower(strings.TrimSpace(provider)),
		key:      key,
	}
}

func (r *DatabaseResolver) Resolve(ctx context.Context, scope string) (*domain.Credentials, error) {
	if scope != domain.ScopePlatform {
		return nil, fmt.Errorf("%w: unsupported scope %q", domain.ErrScopeViolation, scope)
	}

	var row domain.ProviderConfig
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND provider = ? AND is_active = ?", domain.PlatformOrgID, r.provider, true).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no active %s config", domain.ErrConfigMissing, r.provider)
	}
	if err != nil {
		return nil, fmt.Errorf("load provider config: %w", err)
	}

	payload, err := DecryptConfig(r.key, row.Config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigMissing, err)
	}
	if strings.TrimSpace(payload.SecretKey) == "" {
		return nil, fmt.Errorf("%w: empty secret key", domain.ErrConfigMissing)
	}

	return &domain.Credentials{
		Provider:       row.Provider,
		Scope:          scopeOrDefault(payload.Scope, scope),
		SecretKey:      payload.SecretKey,
		PublishableKey: payload.PublishableKey,
		Source:         "database",
	}, nil
}

func scopeOrDefault(stored, requested string) string {
	stored = strings.ToLower(strings.TrimSpace(stored))
	if stored == "" {
		return requested
	}
	return stored
}
