package configstore

import (
	"context"
	"errors"
	"strings"
	"time"
)

const ScopePlatform = "platform"

var (
	ErrNotFound   = errors.New("config entry not found")
	ErrInvalidKey = errors.New("config key and scope are required")
)

// Store is a small scoped key/value store for JSON documents. A ttl of zero
// means the entry does not expire.
type Store interface {
	Get(ctx context.Context, key, scope string) ([]byte, error)
	Set(ctx context.Context, key, scope string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key, scope string) error
}

func validateKey(key, scope string) error {
	if strings.TrimSpace(key) == "" || strings.TrimSpace(scope) == "" {
		return ErrInvalidKey
	}
	return nil
}
