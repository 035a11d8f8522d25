package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnwards/crmproxy/internal/config"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ADDR", "HUBSPOT_ACCESS_TOKEN", "HUBSPOT_API_BASE", "GEMINI_TOKEN", "GEMINI_MODEL",
		"GEMINI_API_BASE", "UPSTREAM_TIMEOUT", "SHUTDOWN_TIMEOUT", "STATIC_DIR", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func noEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("HUBSPOT_ACCESS_TOKEN", "pat-na1-123")
	t.Setenv("GEMINI_TOKEN", "gem-key")

	cfg, err := config.Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, ":3001", cfg.Addr)
	assert.Equal(t, "https://api.hubapi.com", cfg.HubSpotBaseURL)
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.GeminiModel)
	assert.Equal(t, 30*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "public", cfg.StaticDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.GeminiBaseURL)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("HUBSPOT_ACCESS_TOKEN", "pat-na1-123")
	t.Setenv("GEMINI_TOKEN", "gem-key")
	t.Setenv("ADDR", ":9090")
	t.Setenv("HUBSPOT_API_BASE", "http://localhost:8080")
	t.Setenv("UPSTREAM_TIMEOUT", "2s")

	cfg, err := config.Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "http://localhost:8080", cfg.HubSpotBaseURL)
	assert.Equal(t, 2*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, "pat-na1-123", cfg.HubSpotToken)
	assert.Equal(t, "gem-key", cfg.GeminiToken)
}

func TestLoadMissingCredentials(t *testing.T) {
	tests := []struct {
		name    string
		hubspot string
		gemini  string
		missing []string
	}{
		{name: "both missing", missing: []string{"HUBSPOT_ACCESS_TOKEN", "GEMINI_TOKEN"}},
		{name: "hubspot missing", gemini: "gem-key", missing: []string{"HUBSPOT_ACCESS_TOKEN"}},
		{name: "gemini blank", hubspot: "pat", gemini: "   ", missing: []string{"GEMINI_TOKEN"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if tt.hubspot != "" {
				t.Setenv("HUBSPOT_ACCESS_TOKEN", tt.hubspot)
			}
			if tt.gemini != "" {
				t.Setenv("GEMINI_TOKEN", tt.gemini)
			}

			_, err := config.Load(noEnvFile(t))
			require.ErrorIs(t, err, config.ErrMissingCredential)
			for _, k := range tt.missing {
				assert.Contains(t, err.Error(), k)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_TOKEN", "from-env")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HUBSPOT_ACCESS_TOKEN=from-file\nGEMINI_TOKEN=file-loses\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("HUBSPOT_ACCESS_TOKEN") })

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.HubSpotToken)
	assert.Equal(t, "from-env", cfg.GeminiToken)
}

func TestValidateRejectsNonPositiveTimeout(t *testing.T) {
	cfg := config.Config{HubSpotToken: "a", GeminiToken: "b"}
	assert.Error(t, cfg.Validate())

	cfg.UpstreamTimeout = time.Second
	assert.NoError(t, cfg.Validate())
}

func TestReadSkipsValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_TOKEN", "only-gemini")

	cfg, err := config.Read(noEnvFile(t))
	require.NoError(t, err)
	assert.Empty(t, cfg.HubSpotToken)
	assert.Equal(t, "only-gemini", cfg.GeminiToken)
	assert.Error(t, cfg.Validate())
}

func TestLoadFakeCRM(t *testing.T) {
	for _, k := range []string{"CRMFAKE_ADDR", "CRMFAKE_DB", "CRMFAKE_AUTH_TOKEN"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	t.Setenv("CRMFAKE_DB", ":memory:")

	cfg, err := config.LoadFakeCRM(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, ":memory:", cfg.DBPath)
	assert.Empty(t, cfg.AuthToken)
}
