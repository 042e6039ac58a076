package captcha

import (
	"time"

	"github.com/smallbiznis/onboard/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.captcha",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) Verifier {
	if !cfg.Captcha.Enabled {
		return NoopVerifier{}
	}
	if cfg.Captcha.Secret == "" {
		log.Warn("captcha enabled without a secret, every verification will fail")
	}
	return NewTurnstileVerifier(cfg.Captcha.VerifyURL, cfg.Captcha.Secret, 5*time.Second, log)
}
