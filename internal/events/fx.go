package events

import (
	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/onboard/internal/clock"
	"github.com/smallbiznis/onboard/internal/events/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("events",
	fx.Provide(provideBus),
	fx.Provide(func(bus *Bus) Publisher { return bus }),
)

func provideBus(db *gorm.DB, client *redis.Client, genID *snowflake.Node, clk clock.Clock, log *zap.Logger) *Bus {
	var platform Sink
	if client != nil {
		platform = NewStreamSink(client, domain.PlatformBillingStream)
	} else {
		platform = NewLogSink(log)
	}
	return NewBus(clk, log, defaultSinkTimeout, NewOutboxSink(db, genID), platform)
}
