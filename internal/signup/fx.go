package signup

import (
	"github.com/smallbiznis/onboard/internal/notification"
	"go.uber.org/fx"
)

var Module = fx.Module("signup.service",
	fx.Provide(NewService),
	fx.Provide(func(n *notification.Service) Notifier { return n }),
)
