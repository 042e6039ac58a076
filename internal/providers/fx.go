package providers

import (
	"github.com/smallbiznis/onboard/internal/providers/captcha"
	"github.com/smallbiznis/onboard/internal/providers/email"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	captcha.Module,
)
