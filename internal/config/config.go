package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	CORSAllowedOrigins []string

	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	PasswordResetTTL time.Duration
	IdempotencyTTL   time.Duration

	// VNPAY gateway credentials. A missing terminal code or hash secret is a
	// fatal startup error, never a per-request failure.
	VNPayPayURL       string
	VNPayReturnURL    string
	VNPayTmnCode      string
	VNPayHashSecret   string
	VNPayIntentTTL    time.Duration
	CallbackReplayTTL time.Duration

	SMTPAddr string
	SMTPFrom string
	SMTPUser string
	SMTPPass string

	LoginRatePerMinute   int64
	PaymentRatePerMinute int64
}

const defaultVNPayURL = "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		AccessTokenTTL:     parseDuration(k.String("ACCESS_TOKEN_TTL"), "15m"),
		RefreshTokenTTL:    parseDuration(k.String("REFRESH_TOKEN_TTL"), "720h"),
		PasswordResetTTL:   parseDuration(k.String("PASSWORD_RESET_TTL"), "24h"),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		VNPayPayURL:       valueOrDefault(k.String("VNPAY_PAY_URL"), defaultVNPayURL),
		VNPayReturnURL:    k.String("VNPAY_RETURN_URL"),
		VNPayTmnCode:      k.String("VNPAY_TMN_CODE"),
		VNPayHashSecret:   k.String("VNPAY_HASH_SECRET"),
		VNPayIntentTTL:    parseDuration(k.String("VNPAY_INTENT_TTL"), "15m"),
		CallbackReplayTTL: parseDuration(k.String("CALLBACK_REPLAY_TTL"), "48h"),

		SMTPAddr: strings.TrimSpace(k.String("SMTP_ADDR")),
		SMTPFrom: strings.TrimSpace(k.String("SMTP_FROM")),
		SMTPUser: strings.TrimSpace(k.String("SMTP_USER")),
		SMTPPass: k.String("SMTP_PASS"),

		LoginRatePerMinute:   parseInt64(k.String("RATE_LOGIN_PER_MINUTE"), 10),
		PaymentRatePerMinute: parseInt64(k.String("RATE_PAYMENT_PER_MINUTE"), 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.VNPayTmnCode == "" {
		return nil, errors.New("VNPAY_TMN_CODE is required")
	}
	if cfg.VNPayHashSecret == "" {
		return nil, errors.New("VNPAY_HASH_SECRET is required")
	}
	if cfg.VNPayReturnURL == "" {
		return nil, errors.New("VNPAY_RETURN_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt64(value string, fallback int64) int64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var parsed int64
	if _, err := fmt.Sscanf(trimmed, "%d", &parsed); err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
