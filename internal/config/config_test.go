package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "file", cfg.Cache.Backend)
	assert.Equal(t, 2, cfg.Translate.Attempts)
}

func TestLoadLayersYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mixsafe.yaml")
	yamlDoc := `
server:
  port: "9090"
cache:
  backend: memory
  ttl: 1h
ai:
  url: "http://ai.local/"
translate:
  backend: openai
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	t.Setenv("MIXSAFE_CONFIG", path)
	t.Setenv("PORT", "7070")
	t.Setenv("CACHE_TTL", "120")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port, "env overrides yaml")
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 120*time.Second, cfg.Cache.TTL, "plain seconds accepted")
	assert.Equal(t, "http://ai.local", cfg.AI.URL, "trailing slash trimmed")
	assert.True(t, cfg.Translate.TranslationEnabled())
	assert.Equal(t, "gpt-4o-mini", cfg.Translate.OpenAIModel, "defaults survive partial yaml")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("MIXSAFE_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load()
	require.Error(t, err)
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Backend = "memcached"
	cfg.Translate.Attempts = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memcached")
	assert.Contains(t, err.Error(), "attempts")
}

func TestCORSOriginsFromEnv(t *testing.T) {
	t.Setenv("MIXSAFE_CONFIG", "")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")

	cfg := DefaultConfig()
	loadFromEnv(cfg)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestDefaultRequestTimeoutCoversPipelineBudget(t *testing.T) {
	cfg := DefaultConfig()
	// 5m + 5s + 4m + 2*90s + 2s backoff
	assert.Equal(t, 12*time.Minute+7*time.Second, cfg.PipelineBudget())
	assert.Greater(t, cfg.Server.RequestTimeout, cfg.PipelineBudget())
}
