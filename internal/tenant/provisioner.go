package tenant

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/onboard/internal/auth/password"
	"github.com/smallbiznis/onboard/internal/clock"
	"github.com/smallbiznis/onboard/internal/config"
	"github.com/smallbiznis/onboard/internal/tenant/domain"
	"github.com/smallbiznis/onboard/pkg/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrIsolationCheckFailed means the owner row could not be read back through
// the tenant scope it was written in.
var ErrIsolationCheckFailed = errors.New("tenant isolation check failed")

// PasswordHasher turns a plaintext password into a stored hash.
type PasswordHasher func(plain string) (string, error)

type ProvisionerParams struct {
	fx.In

	Repo     domain.Repository
	Executor *tenantctx.Executor
	GenID    *snowflake.Node
	Clock    clock.Clock
	Policy   *config.SignupPolicyHolder
	Log      *zap.Logger
	Hasher   PasswordHasher `optional:"true"`
}

// Provisioner creates and removes tenants together with their owner user
// and subscription record.
type Provisioner struct {
	repo     domain.Repository
	executor *tenantctx.Executor
	genID    *snowflake.Node
	clock    clock.Clock
	policy   *config.SignupPolicyHolder
	log      *zap.Logger

	hashPassword PasswordHasher
}

func NewProvisioner(p ProvisionerParams) *Provisioner {
	hasher := p.Hasher
	if hasher == nil {
		hasher = password.Hash
	}
	return &Provisioner{
		repo:         p.Repo,
		executor:     p.Executor,
		genID:        p.GenID,
		clock:        p.Clock,
		policy:       p.Policy,
		log:          p.Log.Named("tenant.provisioner"),
		hashPassword: hasher,
	}
}

// CreateTenant inserts the tenant row in the platform context.
func (p *Provisioner) CreateTenant(ctx context.Context, name, code string) (*domain.Tenant, error) {
	id := p.genID.Generate()
	now := p.clock.Now()

	tenant := &domain.Tenant{
		ID:        id,
		Name:      strings.TrimSpace(name),
		Code:      code,
		Slug:      tenantSlug(name, id),
		Status:    domain.TenantStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.repo.CreateTenant(ctx, tenant); err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}

	p.log.Debug("tenant created", zap.Int64("tenant_id", id.Int64()), zap.String("code", code))
	return tenant, nil
}

// CreateOwner writes the owner user inside the new tenant's isolation scope
// and reads it back through the same scope before the transaction commits.
func (p *Provisioner) CreateOwner(ctx context.Context, tenantID snowflake.ID, email, plainPassword string) (*domain.User, error) {
	hash, err := p.hashPassword(plainPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	token, err := verificationToken(tenantID)
	if err != nil {
		return nil, err
	}

	now := p.clock.Now()
	expiresAt := now.Add(p.policy.Get().VerificationTokenTTL)
	owner := &domain.User{
		ID:                         p.genID.Generate(),
		TenantID:                   tenantID,
		Email:                      strings.ToLower(strings.TrimSpace(email)),
		PasswordHash:               hash,
		Role:                       domain.RoleOwner,
		EmailVerified:              false,
		VerificationToken:          token,
		VerificationTokenExpiresAt: &expiresAt,
		CreatedAt:                  now,
	}

	err = p.executor.RunAs(ctx, tenantID.Int64(), func(ctx context.Context, scope tenantctx.Scope) error {
		if err := scope.Create(ctx, owner); err != nil {
			return fmt.Errorf("create owner: %w", err)
		}

		var visible int64
		if err := scope.Query(ctx, &domain.User{}).Where("id = ?", owner.ID).Count(&visible).Error; err != nil {
			return fmt.Errorf("read back owner: %w", err)
		}
		if visible != 1 {
			return ErrIsolationCheckFailed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return owner, nil
}

// RecordSubscription stores the activated subscription under the tenant scope.
func (p *Provisioner) RecordSubscription(ctx context.Context, sub *domain.Subscription) error {
	if sub.ID == 0 {
		sub.ID = p.genID.Generate()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = p.clock.Now()
	}
	return p.executor.RunAs(ctx, sub.TenantID.Int64(), func(ctx context.Context, scope tenantctx.Scope) error {
		if err := scope.Create(ctx, sub); err != nil {
			return fmt.Errorf("record subscription: %w", err)
		}
		return nil
	})
}

// DeleteTenant removes the tenant and, by cascade, its users and subscription.
func (p *Provisioner) DeleteTenant(ctx context.Context, tenantID snowflake.ID) error {
	return p.repo.DeleteTenant(ctx, tenantID)
}

// TrialEnd returns the end of a trial of days starting now, or nil for no trial.
func (p *Provisioner) TrialEnd(days int) *time.Time {
	if days <= 0 {
		return nil
	}
	end := p.clock.Now().AddDate(0, 0, days)
	return &end
}

func verificationToken(tenantID snowflake.ID) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}
	return fmt.Sprintf("%d.%s", tenantID.Int64(), hex.EncodeToString(buf)), nil
}

func tenantSlug(name string, id snowflake.ID) string {
	base := slug.Make(name)
	if base == "" {
		base = "tenant"
	}
	if len(base) > 48 {
		base = strings.Trim(base[:48], "-")
	}
	return base + "-" + strings.ToLower(id.Base36())
}
