package credential

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smallbiznis/onboard/internal/clock"
	"github.com/smallbiznis/onboard/internal/credential/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubResolver struct {
	calls atomic.Int32
	creds *domain.Credentials
	err   error
	delay time.Duration
}

func (s *stubResolver) Resolve(ctx context.Context, scope string) (*domain.Credentials, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	creds := *s.creds
	return &creds, nil
}

func TestGuardAllowsPlatformScope(t *testing.T) {
	enforcer, err := NewMemoryEnforcer()
	require.NoError(t, err)
	resolver := &stubResolver{creds: &domain.Credentials{Scope: domain.ScopePlatform, SecretKey: "sk"}}

	creds, err := NewGuard(resolver, enforcer, zaptest.NewLogger(t)).Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sk", creds.SecretKey)
}

func TestGuardRejectsForeignScope(t *testing.T) {
	enforcer, err := NewMemoryEnforcer()
	require.NoError(t, err)
	resolver := &stubResolver{creds: &domain.Credentials{Scope: "tenant", SecretKey: "sk"}}

	_, err = NewGuard(resolver, enforcer, zaptest.NewLogger(t)).Check(context.Background())
	assert.ErrorIs(t, err, domain.ErrScopeViolation)
}

func TestGuardPassesThroughMissingConfig(t *testing.T) {
	enforcer, err := NewMemoryEnforcer()
	require.NoError(t, err)
	resolver := &stubResolver{err: domain.ErrConfigMissing}

	_, err = NewGuard(resolver, enforcer, zaptest.NewLogger(t)).Check(context.Background())
	assert.ErrorIs(t, err, domain.ErrConfigMissing)
}

func TestCachedResolverCachesSuccessUntilExpiry(t *testing.T) {
	fake := clock.NewFakeClock(time.Unix(0, 0))
	next := &stubResolver{creds: &domain.Credentials{Scope: domain.ScopePlatform, SecretKey: "sk"}}
	cached := NewCachedResolver(next, time.Minute, fake)

	for i := 0; i < 3; i++ {
		_, err := cached.Resolve(context.Background(), domain.ScopePlatform)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), next.calls.Load())

	fake.Advance(2 * time.Minute)
	_, err := cached.Resolve(context.Background(), domain.ScopePlatform)
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load())

	cached.Invalidate(domain.ScopePlatform)
	_, err = cached.Resolve(context.Background(), domain.ScopePlatform)
	require.NoError(t, err)
	assert.Equal(t, int32(3), next.calls.Load())
}

func TestCachedResolverDoesNotCacheErrors(t *testing.T) {
	next := &stubResolver{err: errors.New("vault sealed")}
	cached := NewCachedResolver(next, time.Minute, clock.SystemClock{})

	_, err := cached.Resolve(context.Background(), domain.ScopePlatform)
	require.Error(t, err)
	_, err = cached.Resolve(context.Background(), domain.ScopePlatform)
	require.Error(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestCachedResolverCollapsesConcurrentLookups(t *testing.T) {
	next := &stubResolver{
		creds: &domain.Credentials{Scope: domain.ScopePlatform, SecretKey: "sk"},
		delay: 50 * time.Millisecond,
	}
	cached := NewCachedResolver(next, time.Minute, clock.SystemClock{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			creds, err := cached.Resolve(context.Background(), domain.ScopePlatform)
			assert.NoError(t, err)
			assert.Equal(t, "sk", creds.SecretKey)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), next.calls.Load())
}
