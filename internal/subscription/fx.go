package subscription

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/onboard/internal/config"
	"github.com/smallbiznis/onboard/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("subscription",
	fx.Provide(provideActivator),
)

func provideActivator(cfg config.Config, genID *snowflake.Node, log *zap.Logger) domain.Activator {
	if cfg.Billing.GatewayURL == "" {
		log.Warn("billing gateway not configured, subscriptions are recorded locally")
		return NewLocalActivator(genID)
	}
	return NewGatewayActivator(cfg.Billing.GatewayURL, cfg.Billing.GatewayTimeout, log)
}
