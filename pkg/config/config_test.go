package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EngineConfig(t *testing.T) {
	t.Setenv("ENGINES", " ChatGPT, gemini ,,")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GEMINI_MODEL", "gemini-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"chatgpt", "gemini"}, cfg.Engines.Enabled)
	assert.Equal(t, "sk-test", cfg.Engines.OpenAI.APIKey)
	assert.Equal(t, "gemini-test", cfg.Engines.Gemini.Model)
	assert.Empty(t, cfg.Engines.Perplexity.APIKey)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENGINES", "")
	t.Setenv("CORRECTION_COOLDOWN_DAYS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultEngines, cfg.Engines.Enabled)
	assert.Equal(t, 14, cfg.Verification.CooldownDays)
	assert.Equal(t, 60, cfg.Engines.OpenAI.RateLimitRPM)
	assert.True(t, cfg.Audit.GenerativeScoring)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_RejectsZeroCooldown(t *testing.T) {
	t.Setenv("CORRECTION_COOLDOWN_DAYS", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidIntFallsBackToDefault(t *testing.T) {
	t.Setenv("AUDIT_FETCH_TIMEOUT_SECONDS", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Audit.FetchTimeoutSeconds)
}
