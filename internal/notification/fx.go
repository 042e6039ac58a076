package notification

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("notification",
	fx.Provide(NewService),
	fx.Invoke(registerDrain),
)

func registerDrain(lc fx.Lifecycle, svc *Service) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			done := make(chan struct{})
			go func() {
				svc.Wait()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				svc.log.Warn("shutdown before notifications drained")
				return nil
			}
		},
	})
}
