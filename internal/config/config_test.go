package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadLayering(t *testing.T) {
	envFile := writeEnvFile(t, "WRITER_MODEL=from-file\nAPP_PORT=8080\n")

	t.Setenv("WRITER_MODEL", "from-env")
	t.Setenv("GEMINI_REVIEWER_MODEL", "gemini-from-env")

	cfg := Load(envFile)

	assert.Equal(t, "from-file", cfg.Models.Writer.Model, "env file must win over process env")
	assert.Equal(t, "gemini-from-env", cfg.Models.GeminiReviewer.Model, "process env must win over defaults")
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "anthropic/claude-opus-4.6", cfg.Models.AnthropicAdjudicator.Model)
}

func TestLoadMissingFileFallsBackToEnv(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "env-key")
	cfg := Load(filepath.Join(t.TempDir(), "does-not-exist.env"))
	assert.Equal(t, "env-key", cfg.Models.OpenRouterAPIKey)
}

func TestRoleCredentialFallback(t *testing.T) {
	r := NewResolver(MapSource{
		"OPENROUTER_API_KEY": "shared",
		"GEMINI_API_KEY":     "gemini-only",
		"GEMINI_BASE_URL":    "https://gemini.example/v1",
	})
	cfg := FromResolver(r)

	assert.Equal(t, "shared", cfg.Models.OpenAIReviewer.APIKey)
	assert.Equal(t, "gemini-only", cfg.Models.GeminiReviewer.APIKey)
	assert.Equal(t, "https://gemini.example/v1", cfg.Models.GeminiReviewer.BaseURL)
	assert.Equal(t, defaultOpenRouterBaseURL, cfg.Models.Writer.BaseURL)
	assert.Equal(t, "WRITER_API_KEY", cfg.Models.Writer.KeyEnv)
}

func TestDefaults(t *testing.T) {
	cfg := FromResolver(NewResolver(MapSource{}))

	assert.Equal(t, BackendOpenRouter, cfg.Models.Backend)
	assert.Equal(t, 2, cfg.Review.MaxReviewCycles)
	assert.Equal(t, BudgetPolicyEnforce, cfg.Review.BudgetPolicy)
	assert.Equal(t, 4, cfg.Review.Concurrency)
	assert.Equal(t, 3, cfg.Call.MaxAttempts)
	assert.Empty(t, cfg.Models.OpenAIReviewer.APIKey)
	assert.False(t, cfg.Tracing.Enabled)
	assert.False(t, cfg.SMTP.Enabled())
	assert.Equal(t, 587, cfg.SMTP.Port)
}

func TestSMTPNeedsHostAndRecipient(t *testing.T) {
	cfg := FromResolver(NewResolver(MapSource{"SMTP_HOST": "smtp.example.com"}))
	assert.False(t, cfg.SMTP.Enabled())

	cfg = FromResolver(NewResolver(MapSource{"SMTP_HOST": "smtp.example.com", "RUN_REPORT_EMAIL": "dev@example.com"}))
	assert.True(t, cfg.SMTP.Enabled())
}

func TestResolverParsing(t *testing.T) {
	r := NewResolver(
		MapSource{"A": "  ", "N": "notanumber", "D": "45"},
		MapSource{"A": "second", "B": "true", "D2": "1m30s"},
	)

	assert.Equal(t, "second", r.String("A", "x"), "blank values fall through to the next layer")
	assert.Equal(t, 7, r.Int("N", 7))
	assert.True(t, r.Bool("B", false))
	assert.Equal(t, 45*time.Second, r.Duration("D", 0))
	assert.Equal(t, 90*time.Second, r.Duration("D2", 0))
	assert.Equal(t, time.Minute, r.Duration("MISSING", time.Minute))
}
