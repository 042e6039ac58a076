package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/onboard/internal/config"
	"go.uber.org/zap"
)

const keySignupIP = "onboard:ratelimit:signup:ip:%s"

// SignupLimiter throttles public signup attempts per client IP.
type SignupLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
	log    *zap.Logger
}

// NewSignupLimiter returns nil when redis is absent or limiting is disabled.
func NewSignupLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) *SignupLimiter {
	limitCfg := cfg.RateLimit
	if client == nil || limitCfg.SignupPerMinute <= 0 {
		return nil
	}
	burst := limitCfg.SignupBurst
	if burst <= 0 {
		burst = 1
	}
	return &SignupLimiter{
		bucket: NewTokenBucket(client),
		rate:   limitCfg.SignupPerMinute / 60,
		burst:  burst,
		log:    log.Named("ratelimit.signup"),
	}
}

func (l *SignupLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow fails open: a redis error lets the request through and is logged.
func (l *SignupLimiter) Allow(ctx context.Context, clientIP string) *Result {
	if !l.Enabled() {
		return &Result{Allowed: true}
	}

	ip := strings.TrimSpace(clientIP)
	if ip == "" {
		ip = "unknown"
	}
	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keySignupIP, ip), l.rate, l.burst)
	if err != nil {
		l.log.Warn("signup rate limit check failed", zap.Error(err))
		return &Result{Allowed: true, Limit: l.burst}
	}
	return res
}
