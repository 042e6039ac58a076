package tenantctx

import "context"

type keyType string

const (
	TenantIDKey keyType = "tenant_id"
)

// WithTenantID records the tenant whose isolation boundary is active.
func WithTenantID(ctx context.Context, tenantID int64) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

func TenantID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(TenantIDKey).(int64)
	return id, ok
}
