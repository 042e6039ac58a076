package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// SignupPolicy holds the tunables of the signup workflow that operators may
// change without a restart.
type SignupPolicy struct {
	StepTimeout          time.Duration `mapstructure:"stepTimeout"`
	VerificationTokenTTL time.Duration `mapstructure:"verificationTokenTTL"`
	RecoveryTokenTTL     time.Duration `mapstructure:"recoveryTokenTTL"`
	TrialDays            int           `mapstructure:"trialDays"`
	DefaultCurrency      string        `mapstructure:"defaultCurrency"`
	AllowedCurrencies    []string      `mapstructure:"allowedCurrencies"`
}

func DefaultSignupPolicy() SignupPolicy {
	return SignupPolicy{
		StepTimeout:          10 * time.Second,
		VerificationTokenTTL: 24 * time.Hour,
		RecoveryTokenTTL:     72 * time.Hour,
		TrialDays:            14,
		DefaultCurrency:      "USD",
		AllowedCurrencies:    []string{"USD", "EUR", "GBP", "IDR", "SGD"},
	}
}

// CurrencyAllowed reports whether code is an accepted billing currency.
// An empty allow-list accepts everything.
func (p SignupPolicy) CurrencyAllowed(code string) bool {
	if len(p.AllowedCurrencies) == 0 {
		return true
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, allowed := range p.AllowedCurrencies {
		if strings.EqualFold(allowed, code) {
			return true
		}
	}
	return false
}

type SignupPolicyHolder struct {
	current atomic.Value // holds SignupPolicy
}

// NewStaticSignupPolicy returns a holder that never reloads.
func NewStaticSignupPolicy(policy SignupPolicy) *SignupPolicyHolder {
	holder := &SignupPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewSignupPolicyHolder(log *zap.Logger) (*SignupPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("signup")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/onboard/config") // Volume-mounted config
	v.AddConfigPath("/etc/onboard")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("ONBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultSignupPolicy()
	v.SetDefault("signup.stepTimeout", defaults.StepTimeout)
	v.SetDefault("signup.verificationTokenTTL", defaults.VerificationTokenTTL)
	v.SetDefault("signup.recoveryTokenTTL", defaults.RecoveryTokenTTL)
	v.SetDefault("signup.trialDays", defaults.TrialDays)
	v.SetDefault("signup.defaultCurrency", defaults.DefaultCurrency)
	v.SetDefault("signup.allowedCurrencies", defaults.AllowedCurrencies)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var policy SignupPolicy
	if err := v.UnmarshalKey("signup", &policy); err != nil {
		return nil, err
	}
	if err := validateSignupPolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticSignupPolicy(policy)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated SignupPolicy
		if err := v.UnmarshalKey("signup", &updated); err != nil {
			log.Warn("signup policy reload failed", zap.Error(err))
			return
		}
		if err := validateSignupPolicy(updated); err != nil {
			log.Warn("invalid signup policy ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("signup policy reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *SignupPolicyHolder) Get() SignupPolicy {
	return h.current.Load().(SignupPolicy)
}

func validateSignupPolicy(p SignupPolicy) error {
	if p.StepTimeout <= 0 {
		return errors.New("signup.stepTimeout must be positive")
	}
	if p.VerificationTokenTTL <= 0 {
		return errors.New("signup.verificationTokenTTL must be positive")
	}
	if p.RecoveryTokenTTL <= 0 {
		return errors.New("signup.recoveryTokenTTL must be positive")
	}
	if p.TrialDays < 0 {
		return errors.New("signup.trialDays cannot be negative")
	}
	if len(strings.TrimSpace(p.DefaultCurrency)) != 3 {
		return errors.New("signup.defaultCurrency must be an ISO 4217 code")
	}
	return nil
}
