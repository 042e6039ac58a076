package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/smallbiznis/onboard/internal/credential/domain"
	"go.uber.org/zap"
)

// Guard is the credential preflight: it proves platform billing credentials
// exist and may be used for signup before anything is written.
type Guard struct {
	resolver domain.Resolver
	enforcer *casbin.SyncedEnforcer
	log      *zap.Logger
}

func NewGuard(resolver domain.Resolver, enforcer *casbin.SyncedEnforcer, log *zap.Logger) *Guard {
	return &Guard{
		resolver: resolver,
		enforcer: enforcer,
		log:      log.Named("credential.guard"),
	}
}

// Check returns the platform credentials or an error wrapping
// domain.ErrConfigMissing or domain.ErrScopeViolation.
func (g *Guard) Check(ctx context.Context) (*domain.Credentials, error) {
	creds, err := g.resolver.Resolve(ctx, domain.ScopePlatform)
	if err != nil {
		if !errors.Is(err, domain.ErrConfigMissing) && !errors.Is(err, domain.ErrScopeViolation) {
			g.log.Warn("credential resolution failed", zap.Error(err))
		}
		return nil, err
	}

	allowed, err := g.enforcer.Enforce(creds.Scope, ObjectBilling, ActionSignupActivate)
	if err != nil {
		return nil, fmt.Errorf("evaluate credential policy: %w", err)
	}
	if !allowed {
		g.log.Warn("credential scope rejected",
			zap.String("scope", creds.Scope),
			zap.String("provider", creds.Provider),
			zap.String("source", creds.Source),
		)
		return nil, fmt.Errorf("%w: scope %q", domain.ErrScopeViolation, creds.Scope)
	}
	return creds, nil
}
