package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds gateway configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	BackendBaseURL     string
	RedisURL           string
	CORSAllowedOrigins []string

	// FOMO Pay webhook credentials. The pre-shared key never leaves the
	// server process.
	FomoMID string
	FomoPSK string

	PaymentProvider string
	ReturnPath      string
	BackPath        string

	AdminCookieName     string
	AdminCookieTTL      time.Duration
	AdminCookieDomain   string
	AdminCookieSecure   bool
	AdminCookieSameSite http.SameSite

	SessionCookieName string
	SessionTTL        time.Duration

	CatalogCacheTTL time.Duration
	CatalogFallback bool
	BackendTimeout  time.Duration
	IdempotencyTTL  time.Duration
	LoginRateWindow time.Duration
	LoginRateMax    int
	MaxWebhookBody  int64
	SecurityHeaders bool
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
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		BackendBaseURL:     strings.TrimRight(strings.TrimSpace(k.String("BACKEND_API_URL")), "/"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		FomoMID: strings.TrimSpace(k.String("FOMO_MID")),
		FomoPSK: k.String("FOMO_PSK"),

		PaymentProvider: valueOrDefault(strings.ToLower(k.String("PAYMENT_PROVIDER")), "fomopay"),
		ReturnPath:      valueOrDefault(k.String("PAYMENT_RETURN_PATH"), "/checkout/result"),
		BackPath:        valueOrDefault(k.String("PAYMENT_BACK_PATH"), "/booking"),

		AdminCookieName:     valueOrDefault(k.String("ADMIN_COOKIE_NAME"), "admin_token"),
		AdminCookieTTL:      parseDuration(k.String("ADMIN_COOKIE_TTL"), "12h"),
		AdminCookieDomain:   strings.TrimSpace(k.String("ADMIN_COOKIE_DOMAIN")),
		AdminCookieSecure:   parseBool(k.String("ADMIN_COOKIE_SECURE")),
		AdminCookieSameSite: parseSameSite(k.String("ADMIN_COOKIE_SAMESITE")),

		SessionCookieName: valueOrDefault(k.String("SESSION_COOKIE_NAME"), "tour_session"),
		SessionTTL:        parseDuration(k.String("SESSION_TTL"), "12h"),

		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "30s"),
		CatalogFallback: parseBool(k.String("CATALOG_FALLBACK_ENABLED")),
		BackendTimeout:  parseDuration(k.String("BACKEND_TIMEOUT"), "10s"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "10m"),
		LoginRateWindow: parseDuration(k.String("LOGIN_RATE_WINDOW"), "1m"),
		LoginRateMax:    parseInt(k.String("LOGIN_RATE_MAX"), 10),
		MaxWebhookBody:  int64(parseInt(k.String("MAX_WEBHOOK_BODY_BYTES"), 1<<20)),
		SecurityHeaders: parseBoolDefault(k.String("SECURITY_HEADERS_ENABLED"), true),
	}

	if cfg.AdminCookieSameSite == http.SameSiteDefaultMode {
		cfg.AdminCookieSameSite = http.SameSiteLaxMode
	}

	if cfg.BackendBaseURL == "" {
		return nil, errors.New("BACKEND_API_URL is required")
	}
	if _, err := url.Parse(cfg.BackendBaseURL); err != nil {
		return nil, fmt.Errorf("BACKEND_API_URL is invalid: %w", err)
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.FomoMID == "" {
		return nil, errors.New("FOMO_MID is required")
	}
	if cfg.FomoPSK == "" {
		return nil, errors.New("FOMO_PSK is required")
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

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var parsed int
	if _, err := fmt.Sscanf(trimmed, "%d", &parsed); err != nil {
		return fallback
	}
	return parsed
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}

// MustLoad behaves like Load but panics on error. Useful for command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests overrides environment variables, loads the configuration, and
// restores the previous environment.
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
