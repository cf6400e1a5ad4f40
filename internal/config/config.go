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

// SMTP holds connection settings for a single outbound mail transport.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
}

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	AppName            string
	Port               string
	JWTSecret          string
	AccessTokenTTL     time.Duration
	CORSAllowedOrigins []string

	DefaultFromName    string
	DefaultFromAddress string
	DailyEmailQuota    int

	PrimarySMTP   SMTP
	SecondarySMTP SMTP

	// Demo message used by the send endpoint when the caller omits the
	// recipient/subject/body fields.
	DemoRecipientName    string
	DemoRecipientAddress string
	DemoSubject          string
	DemoBodyHTML         string

	RedisURL string

	LoginRateMax    int
	LoginRateWindow time.Duration
	SendRateMax     int
	SendRateWindow  time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		AppName:            valueOrDefault(k.String("APP_NAME"), "Mailer Service"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		JWTSecret:          k.String("JWT_SECRET"),
		AccessTokenTTL:     parseDuration(k.String("ACCESS_TOKEN_TTL"), "1h"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		DefaultFromName:    valueOrDefault(k.String("DEFAULT_MAIL_FROM_NAME"), valueOrDefault(k.String("APP_NAME"), "Mailer Service")),
		DefaultFromAddress: valueOrDefault(k.String("DEFAULT_MAIL_FROM"), "no-reply@example.com"),
		DailyEmailQuota:    intOrDefault(k, "DAILY_EMAIL_QUOTA", 3),

		PrimarySMTP: SMTP{
			Host:     k.String("MAIL_HOST"),
			Port:     intOrDefault(k, "MAIL_PORT", 587),
			Username: k.String("MAIL_USER"),
			Password: k.String("MAIL_PASS"),
			UseTLS:   parseBool(k.String("MAIL_TLS")),
		},
		SecondarySMTP: SMTP{
			Host:     k.String("SECONDARY_MAIL_HOST"),
			Port:     intOrDefault(k, "SECONDARY_MAIL_PORT", 587),
			Username: k.String("SECONDARY_MAIL_USER"),
			Password: k.String("SECONDARY_MAIL_PASS"),
			UseTLS:   parseBool(k.String("SECONDARY_MAIL_TLS")),
		},

		DemoRecipientName:    valueOrDefault(k.String("DEMO_RECIPIENT_NAME"), "Juancito Doe"),
		DemoRecipientAddress: valueOrDefault(k.String("DEMO_RECIPIENT"), "juancito@example.com"),
		DemoSubject:          valueOrDefault(k.String("DEMO_SUBJECT"), "Test Email from Mailer Service"),
		DemoBodyHTML:         valueOrDefault(k.String("DEMO_BODY_HTML"), "<h1>Hello {name}!, this is a test email from Mailer Service</h1>"),

		RedisURL: k.String("REDIS_URL"),

		LoginRateMax:    intOrDefault(k, "LOGIN_RATE_MAX", 10),
		LoginRateWindow: parseDuration(k.String("LOGIN_RATE_WINDOW"), "1m"),
		SendRateMax:     intOrDefault(k, "SEND_RATE_MAX", 30),
		SendRateWindow:  parseDuration(k.String("SEND_RATE_WINDOW"), "1m"),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.PrimarySMTP.Host == "" {
		return nil, errors.New("MAIL_HOST is required")
	}
	if cfg.SecondarySMTP.Host == "" {
		return nil, errors.New("SECONDARY_MAIL_HOST is required")
	}
	if cfg.DailyEmailQuota <= 0 {
		return nil, errors.New("DAILY_EMAIL_QUOTA must be positive")
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

func intOrDefault(k *koanf.Koanf, key string, fallback int) int {
	if strings.TrimSpace(k.String(key)) == "" {
		return fallback
	}
	return k.Int(key)
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

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
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
