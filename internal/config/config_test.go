package config_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lioncity-tours/gateway/internal/config"
)

func baseEnv() map[string]string {
	return map[string]string{
		"BACKEND_API_URL": "http://backend.local/api",
		"REDIS_URL":       "redis://localhost:6379/0",
		"FOMO_MID":        "merchant-001",
		"FOMO_PSK":        "secret",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(baseEnv())
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, "fomopay", cfg.PaymentProvider)
	require.Equal(t, "/checkout/result", cfg.ReturnPath)
	require.Equal(t, "admin_token", cfg.AdminCookieName)
	require.Equal(t, http.SameSiteLaxMode, cfg.AdminCookieSameSite)
	require.True(t, cfg.SecurityHeaders)
}

func TestLoadTrimsBackendURL(t *testing.T) {
	env := baseEnv()
	env["BACKEND_API_URL"] = "http://backend.local/api/"
	cfg, err := config.LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, "http://backend.local/api", cfg.BackendBaseURL)
}

func TestLoadRequiredKeys(t *testing.T) {
	for _, key := range []string{"BACKEND_API_URL", "REDIS_URL", "FOMO_MID", "FOMO_PSK"} {
		env := baseEnv()
		env[key] = ""
		_, err := config.LoadForTests(env)
		require.Error(t, err, "expected error when %s missing", key)
		require.Contains(t, err.Error(), key)
	}
}
