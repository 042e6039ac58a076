package configstore

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/onboard/internal/clock"
	"github.com/smallbiznis/onboard/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("configstore",
	fx.Provide(NewRedisClient),
	fx.Provide(provideStore),
)

// NewRedisClient returns nil when no redis address is configured. Callers
// fall back to their relational or log-only implementation.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if !cfg.Redis.Enabled() {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis ping failed", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	return client
}

func provideStore(client *redis.Client, db *gorm.DB, clk clock.Clock, log *zap.Logger) Store {
	if client != nil {
		return NewRedisStore(client)
	}
	log.Info("config store using database backend")
	return NewGormStore(db, clk)
}
