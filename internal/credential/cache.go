package credential

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/onboard/internal/clock"
	"github.com/smallbiznis/onboard/internal/credential/domain"
	"golang.org/x/sync/singleflight"
)

// CachedResolver memoizes successful resolutions for ttl and collapses
// concurrent lookups of the same scope into one backend call. Failures are
// never cached so a fixed configuration is picked up on the next request.
type CachedResolver struct {
	next  domain.Resolver
	ttl   time.Duration
	clock clock.Clock

	sfg     singleflight.Group
	mu      sync.RWMutex
	entries map[string]cachedCredentials
}

type cachedCredentials struct {
	creds     domain.Credentials
	expiresAt time.Time
}

func NewCachedResolver(next domain.Resolver, ttl time.Duration, clk clock.Clock) *CachedResolver {
	return &CachedResolver{
		next:    next,
		ttl:     ttl,
		clock:   clk,
		entries: make(map[string]cachedCredentials),
	}
}

func (c *CachedResolver) Resolve(ctx context.Context, scope string) (*domain.Credentials, error) {
	if creds, ok := c.lookup(scope); ok {
		return creds, nil
	}

	v, err, _ := c.sfg.Do(scope, func() (interface{}, error) {
		if creds, ok := c.lookup(scope); ok {
			return creds, nil
		}
		creds, err := c.next.Resolve(ctx, scope)
		if err != nil {
			return nil, err
		}
		if c.ttl > 0 {
			c.mu.Lock()
			c.entries[scope] = cachedCredentials{creds: *creds, expiresAt: c.clock.Now().Add(c.ttl)}
			c.mu.Unlock()
		}
		return creds, nil
	})
	if err != nil {
		return nil, err
	}
	creds := *v.(*domain.Credentials)
	return &creds, nil
}

// Invalidate drops the cached entry for scope.
func (c *CachedResolver) Invalidate(scope string) {
	c.mu.Lock()
	delete(c.entries, scope)
	c.mu.Unlock()
}

func (c *CachedResolver) lookup(scope string) (*domain.Credentials, bool) {
	c.mu.RLock()
	entry, ok := c.entries[scope]
	c.mu.RUnlock()
	if !ok || !c.clock.Now().Before(entry.expiresAt) {
		return nil, false
	}
	creds := entry.creds
	return &creds, true
}
