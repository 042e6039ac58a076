package migration

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/onboard/internal/config"
	"github.com/smallbiznis/onboard/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, genID *snowflake.Node, log *zap.Logger) error {
		if err := Run(conn); err != nil {
			return err
		}

		if cfg.Environment == "production" {
			return nil
		}
		created, err := seed.EnsureStarterPlans(conn, genID)
		if err != nil {
			return err
		}
		if created > 0 {
			log.Info("seeded starter plans", zap.Int("count", created))
		}
		return nil
	}),
)
