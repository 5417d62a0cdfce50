package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Load_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsDev())
	assert.False(t, cfg.IsProd())
	assert.Equal(t, "https://api.deepseek.com", cfg.LLMBaseURL)
	assert.Equal(t, "deepseek-chat", cfg.LLMModel)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 3, cfg.LLMMaxRetries)
	assert.Equal(t, 5*time.Minute, cfg.LLMCacheTTL)
	assert.Equal(t, 50, cfg.LLMCacheSize)
	assert.Equal(t, 10, cfg.MinAnswerLength)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
}

func Test_Load_Overrides(t *testing.T) {
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("LLM_MAX_RETRIES", "5")
	t.Setenv("STORE_DRIVER", "redis")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.LLMAPIKey)
	assert.Equal(t, 5, cfg.LLMMaxRetries)
	assert.Equal(t, StoreRedis, cfg.StoreDriver)
}

func Test_Load_Invalid(t *testing.T) {
	tests := []struct {
		name, key, val, want string
	}{
		{"bad driver", "STORE_DRIVER", "sqlite", "STORE_DRIVER"},
		{"zero retries", "LLM_MAX_RETRIES", "0", "LLM_MAX_RETRIES"},
		{"bad duration", "LLM_TIMEOUT", "soon", "op=config.Load"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGetRetryPolicy(t *testing.T) {
	cfg := Config{AppEnv: "prod", LLMMaxRetries: 3, LLMBackoffInitial: time.Second, LLMBackoffMultiple: 2, LLMTimeout: 30 * time.Second}
	p := cfg.GetRetryPolicy()
	assert.Equal(t, 3, p.Attempts)
	assert.Equal(t, time.Second, p.Delay(0))
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 30*time.Second, p.AttemptTimeout)

	cfg.AppEnv = "test"
	assert.Equal(t, 10*time.Millisecond, cfg.GetRetryPolicy().InitialDelay)
}

func TestPositionCatalog_Embedded(t *testing.T) {
	pc, err := LoadPositionCatalog("")
	require.NoError(t, err)

	be := pc.Lookup("Backend Engineer")
	assert.Contains(t, be.FocusAreas, "High concurrency")
	assert.Equal(t, "mid", be.ExperienceLevel)

	assert.Equal(t, "senior", pc.Lookup("  algorithm engineer ").ExperienceLevel)

	def := pc.Lookup("Product Manager")
	assert.Equal(t, "any", def.ExperienceLevel)
	assert.Empty(t, def.Highlights)
	assert.NotNil(t, def.Highlights)
}

func TestPositionCatalog_LookupReturnsCopy(t *testing.T) {
	pc, err := LoadPositionCatalog("")
	require.NoError(t, err)
	a := pc.Lookup("frontend engineer")
	a.FocusAreas[0] = "changed"
	assert.NotEqual(t, "changed", pc.Lookup("frontend engineer").FocusAreas[0])
}

func TestPositionCatalog_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.yaml")
	doc := "positions:\n  - titles: [\"SRE\"]\n    analysis:\n      experience_level: senior\n      focus_areas: [\"on-call\"]\ndefault:\n  experience_level: any\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	pc, err := LoadPositionCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, "senior", pc.Lookup("sre").ExperienceLevel)

	_, err = LoadPositionCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = ParsePositionCatalog([]byte("positions:\n  - analysis: {}\n"))
	require.Error(t, err)
}
