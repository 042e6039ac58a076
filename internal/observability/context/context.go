package context

import (
	stdctx "context"
	"strconv"
	"strings"
)

type requestIDKey struct{}
type tenantIDKey struct{}
type idempotencyKindKey struct{}

func WithRequestID(ctx stdctx.Context, requestID string) stdctx.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return stdctx.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx stdctx.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

// WithTenantID marks the context with the tenant the current work belongs to.
func WithTenantID(ctx stdctx.Context, tenantID int64) stdctx.Context {
	if tenantID == 0 {
		return ctx
	}
	return stdctx.WithValue(ctx, tenantIDKey{}, tenantID)
}

// TenantIDFromContext returns the tenant id as a string, or "" when unset.
func TenantIDFromContext(ctx stdctx.Context) string {
	if ctx == nil {
		return ""
	}
	value, ok := ctx.Value(tenantIDKey{}).(int64)
	if !ok || value == 0 {
		return ""
	}
	return strconv.FormatInt(value, 10)
}

func WithIdempotencyKind(ctx stdctx.Context, kind string) stdctx.Context {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return ctx
	}
	return stdctx.WithValue(ctx, idempotencyKindKey{}, kind)
}

func IdempotencyKindFromContext(ctx stdctx.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(idempotencyKindKey{}).(string)
	return value
}
