package tenant

import (
	"github.com/smallbiznis/onboard/internal/tenant/repository"
	"github.com/smallbiznis/onboard/pkg/tenantctx"
	"go.uber.org/fx"
)

var Module = fx.Module("tenant",
	fx.Provide(repository.NewRepository),
	fx.Provide(tenantctx.NewExecutor),
	fx.Provide(NewProvisioner),
)
