package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nodus-reseau/leadform/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 2500*time.Millisecond, cfg.Form.SplashDelay)
	assert.Equal(t, 300*time.Millisecond, cfg.Form.SelectDelay)
	assert.Equal(t, "direct", cfg.Form.DefaultSource)
	assert.Equal(t, 15*time.Second, cfg.Submit.Timeout)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "leadform:session:", cfg.Redis.Prefix)
	assert.True(t, cfg.Encryption.ScrubSubmitted)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leadform.yaml")
	yaml := `
log_level: debug
form:
  splash_delay: 1s
submit:
  endpoint: https://forms.example.org/f/abc
  multipart: true
redis:
  addr: localhost:6379
encryption:
  fallback_keys:
    - a2V5MQ==
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := config.Load(path, []string{
		"LEADFORM_FORM_SPLASH_DELAY=200ms",
		"LEADFORM_REDIS_DB=3",
		"LEADFORM_HTTP_ADDR=:9090",
		"LEADFORM_ENCRYPTION_FALLBACK_KEYS=k1,k2",
		"HOME=/root",
	})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 200*time.Millisecond, cfg.Form.SplashDelay, "env overrides file")
	assert.Equal(t, 300*time.Millisecond, cfg.Form.SelectDelay, "defaults survive")
	assert.Equal(t, "https://forms.example.org/f/abc", cfg.Submit.Endpoint)
	assert.True(t, cfg.Submit.Multipart)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Encryption.FallbackKeys)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leadform.yaml")
	require.NoError(t, os.WriteFile(path, []byte("form:\n  splsh_delay: 1s\n"), 0o600))

	_, err := config.Load(path, nil)
	assert.ErrorContains(t, err, "splsh_delay")
}

func TestLoad_Validation(t *testing.T) {
	_, err := config.Load("", []string{"LEADFORM_SUBMIT_ENDPOINT=not a url"})
	assert.ErrorContains(t, err, "submit.endpoint")

	_, err = config.Load("", []string{"LEADFORM_LOG_FORMAT=xml"})
	assert.ErrorContains(t, err, "log_format")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestEnvKeys(t *testing.T) {
	keys := config.EnvKeys()
	assert.Contains(t, keys, "LEADFORM_SUBMIT_ENDPOINT")
	assert.Contains(t, keys, "LEADFORM_FORM_SPLASH_DELAY")
	assert.Contains(t, keys, "LEADFORM_TELEGRAM_TOKEN")
}
