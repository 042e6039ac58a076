package billingprovisioning

import (
	"context"
	"time"

	"github.com/smallbiznis/onboard/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	pollInterval = 5 * time.Second
	pollLockKey  = "onboard:lock:billing.provisioning"
	pollLockTTL  = 30 * time.Second
)

var Module = fx.Module("billing.provisioning",
	fx.Provide(NewConsumer),
	fx.Invoke(runConsumer),
)

type runParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Consumer  *Consumer
	Locker    *ratelimit.Locker `optional:"true"`
}

func runConsumer(p runParams) {
	consumer := p.Consumer
	lc := p.Lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(pollInterval)
				defer ticker.Stop()

				for {
					if err := pollOnce(ctx, consumer, p.Locker); err != nil && ctx.Err() == nil {
						consumer.log.Error("provisioning poll failed", zap.Error(err))
					}
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

// pollOnce drains pending events while holding the shared poll lock, so only
// one replica provisions at a time. Without redis every replica polls and
// relies on the workspace unique index.
func pollOnce(ctx context.Context, consumer *Consumer, locker *ratelimit.Locker) error {
	_, err := locker.Do(ctx, pollLockKey, pollLockTTL, func(ctx context.Context) error {
		_, err := consumer.ProcessPending(ctx)
		return err
	})
	return err
}
