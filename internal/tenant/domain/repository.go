package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var ErrTenantNotFound = errors.New("tenant not found")

type Repository interface {
	CreateTenant(ctx context.Context, tenant *Tenant) error
	FindTenant(ctx context.Context, id snowflake.ID) (*Tenant, error)
	// DeleteTenant removes the tenant row; dependents go with it through
	// ON DELETE CASCADE. Returns ErrTenantNotFound when nothing was deleted.
	DeleteTenant(ctx context.Context, id snowflake.ID) error
	CountTenantsByName(ctx context.Context, name string) (int64, error)
}
