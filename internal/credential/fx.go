package credential

import (
	"github.com/smallbiznis/onboard/internal/clock"
	"github.com/smallbiznis/onboard/internal/config"
	"github.com/smallbiznis/onboard/internal/credential/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("credential",
	fx.Provide(NewEnforcer),
	fx.Provide(provideResolver),
	fx.Provide(NewGuard),
)

type resolverParams struct {
	fx.In

	Cfg   config.Config
	DB    *gorm.DB
	Clock clock.Clock
	Log   *zap.Logger
}

func provideResolver(p resolverParams) (domain.Resolver, error) {
	var backend domain.Resolver
	switch p.Cfg.Billing.CredentialBackend {
	case config.CredentialBackendVault:
		client, err := NewVaultClient(p.Cfg.Vault)
		if err != nil {
			return nil, err
		}
		backend = NewVaultResolver(client, p.Cfg.Vault, p.Cfg.Billing.Provider)
	default:
		backend = NewDatabaseResolver(p.DB, p.Cfg.Billing.Provider, DeriveKey(p.Cfg.Billing.ProviderConfigSecret))
	}

	p.Log.Info("credential backend configured",
		zap.String("backend", p.Cfg.Billing.CredentialBackend),
		zap.String("provider", p.Cfg.Billing.Provider),
		zap.Duration("cache_ttl", p.Cfg.Billing.CredentialCacheTTL),
	)
	return NewCachedResolver(backend, p.Cfg.Billing.CredentialCacheTTL, p.Clock), nil
}
