package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Mode        string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string
	Logger       LoggerConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis     RedisConfig
	Vault     VaultConfig
	Billing   BillingConfig
	Email     EmailConfig
	Captcha   CaptchaConfig
	RateLimit RateLimitConfig
}

type LoggerConfig struct {
	Level string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a redis address is configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// RateLimitConfig bounds public signup attempts per client IP. A zero rate
// disables limiting.
type RateLimitConfig struct {
	SignupPerMinute float64
	SignupBurst     int
}

type VaultConfig struct {
	Addr  string
	Token string
	Mount string
	Path  string
}

const (
	CredentialBackendDatabase = "database"
	CredentialBackendVault    = "vault"
)

type BillingConfig struct {
	Provider             string
	GatewayURL           string
	GatewayTimeout       time.Duration
	CredentialBackend    string
	CredentialCacheTTL   time.Duration
	ProviderConfigSecret string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	VerifyURL    string
}

// Enabled reports whether outbound SMTP delivery is configured.
func (c EmailConfig) Enabled() bool {
	return strings.TrimSpace(c.SMTPHost) != ""
}

type CaptchaConfig struct {
	Enabled   bool
	Secret    string
	VerifyURL string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "onboard"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Mode:         normalizeMode(getenv("APP_MODE", ModeOSS)),
		Environment:  environment,
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),
		Logger: LoggerConfig{
			Level: strings.ToLower(getenv("LOG_LEVEL", "info")),
		},
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "onboard"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		Vault: VaultConfig{
			Addr:  strings.TrimSpace(getenv("VAULT_ADDR", "")),
			Token: strings.TrimSpace(getenv("VAULT_TOKEN", "")),
			Mount: getenv("VAULT_KV_MOUNT", "secret"),
			Path:  getenv("VAULT_BILLING_PATH", "platform/billing"),
		},
		Billing: BillingConfig{
			Provider:             strings.ToLower(getenv("BILLING_PROVIDER", "stripe")),
			GatewayURL:           strings.TrimRight(strings.TrimSpace(getenv("BILLING_GATEWAY_URL", "")), "/"),
			GatewayTimeout:       getenvDuration("BILLING_GATEWAY_TIMEOUT", 10*time.Second),
			CredentialBackend:    normalizeCredentialBackend(getenv("BILLING_CREDENTIAL_BACKEND", CredentialBackendDatabase)),
			CredentialCacheTTL:   getenvDuration("BILLING_CREDENTIAL_CACHE_TTL", time.Minute),
			ProviderConfigSecret: strings.TrimSpace(getenv("PAYMENT_PROVIDER_CONFIG_SECRET", "")),
		},
		Email: EmailConfig{
			SMTPHost:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "no-reply@onboard.local"),
			VerifyURL:    strings.TrimSpace(getenv("EMAIL_VERIFY_URL", "http://localhost:3000/verify-email")),
		},
		Captcha: CaptchaConfig{
			Enabled:   getenvBool("CAPTCHA_ENABLED", environment == "production"),
			Secret:    strings.TrimSpace(getenv("CAPTCHA_SECRET", "")),
			VerifyURL: getenv("CAPTCHA_VERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify"),
		},
		RateLimit: RateLimitConfig{
			SignupPerMinute: getenvFloat("SIGNUP_RATE_LIMIT_PER_MINUTE", 10),
			SignupBurst:     getenvInt("SIGNUP_RATE_LIMIT_BURST", 5),
		},
	}

	return cfg
}

const (
	ModeOSS   = "oss"
	ModeCloud = "cloud"
)

func (c Config) IsCloud() bool {
	return c.Mode == ModeCloud
}

func normalizeMode(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case ModeCloud:
		return ModeCloud
	default:
		return ModeOSS
	}
}

func normalizeCredentialBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case CredentialBackendVault:
		return CredentialBackendVault
	default:
		return CredentialBackendDatabase
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
