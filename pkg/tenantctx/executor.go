package tenantctx

import (
	"context"
	"errors"
	"fmt"

	obscontext "github.com/smallbiznis/onboard/internal/observability/context"
	"github.com/smallbiznis/onboard/pkg/rls"
	"gorm.io/gorm"
)

var (
	ErrInvalidTenant    = errors.New("tenant id is required")
	ErrCrossTenantWrite = errors.New("row belongs to a different tenant")
	ErrNestedScope      = errors.New("tenant scope already active")
)

// Owned is implemented by rows that belong to a tenant.
type Owned interface {
	OwnerTenantID() int64
}

// Scope is the handle a unit of work receives inside RunAs. Every read goes
// through Query, which filters by the scope's tenant; every write goes through
// Create, which refuses rows owned by another tenant.
type Scope struct {
	tenantID int64
	tx       *gorm.DB
}

func (s Scope) TenantID() int64 {
	return s.tenantID
}

// Query starts a statement on model restricted to the scope's tenant.
func (s Scope) Query(ctx context.Context, model any) *gorm.DB {
	return s.tx.WithContext(ctx).Model(model).Where("tenant_id = ?", s.tenantID)
}

func (s Scope) Create(ctx context.Context, row Owned) error {
	if row.OwnerTenantID() != s.tenantID {
		return ErrCrossTenantWrite
	}
	return s.tx.WithContext(ctx).Create(row).Error
}

// Executor runs work under a tenant isolation boundary.
type Executor struct {
	db *gorm.DB
}

func NewExecutor(db *gorm.DB) *Executor {
	return &Executor{db: db}
}

// RunAs opens a transaction bound to tenantID and calls fn with a Scope for
// it. On postgres the transaction also sets the row-level security tenant,
// so the database policies are enforced exactly as for regular tenant
// traffic. fn's error rolls the transaction back.
func (e *Executor) RunAs(ctx context.Context, tenantID int64, fn func(ctx context.Context, scope Scope) error) error {
	if tenantID <= 0 {
		return ErrInvalidTenant
	}
	if active, ok := TenantID(ctx); ok && active != tenantID {
		return fmt.Errorf("%w: %d", ErrNestedScope, active)
	}

	ctx = WithTenantID(ctx, tenantID)
	ctx = obscontext.WithTenantID(ctx, tenantID)

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, tenantID); err != nil {
			return fmt.Errorf("bind tenant: %w", err)
		}
		return fn(ctx, Scope{tenantID: tenantID, tx: tx})
	})
}
