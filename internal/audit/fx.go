package audit

import (
	auditdomain "github.com/smallbiznis/onboard/internal/audit/domain"
	"github.com/smallbiznis/onboard/internal/audit/repository"
	"github.com/smallbiznis/onboard/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(s *service.Service) auditdomain.Recorder { return s }),
)
