package configstore

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "onboard:config:"

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key, scope string) ([]byte, error) {
	if err := validateKey(key, scope); err != nil {
		return nil, err
	}
	value, err := s.client.Get(ctx, redisKey(key, scope)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key, scope string, value []byte, ttl time.Duration) error {
	if err := validateKey(key, scope); err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, redisKey(key, scope), value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key, scope string) error {
	if err := validateKey(key, scope); err != nil {
		return err
	}
	return s.client.Del(ctx, redisKey(key, scope)).Err()
}

func redisKey(key, scope string) string {
	return redisKeyPrefix + scope + ":" + key
}
