package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, DefaultRestockQty, cfg.DefaultRestockQty)
	assert.Equal(t, DefaultLowStockThreshold, cfg.LowStockThreshold)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout())
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL())
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.HTTPPort = 0 }},
		{"bad rpc port", func(c *Config) { c.RPCPort = 70000 }},
		{"no database", func(c *Config) { c.DatabaseURL = "" }},
		{"unknown provider", func(c *Config) { c.LLMProvider = "claude" }},
		{"gemini without key", func(c *Config) { c.LLMProvider = "gemini" }},
		{"zero timeout", func(c *Config) { c.LLMTimeoutMs = 0 }},
		{"zero restock qty", func(c *Config) { c.DefaultRestockQty = 0 }},
		{"negative threshold", func(c *Config) { c.LowStockThreshold = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Defaults()
	cfg.LLMProvider = "gemini"
	cfg.GeminiAPIKey = "key"
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LLM_PROVIDER", "MOCK")
	t.Setenv("LLM_TIMEOUT_MS", "1500")
	t.Setenv("READ_ONLY", "true")
	t.Setenv("DEFAULT_RESTOCK_QTY", "4")
	t.Setenv("LOW_STOCK_THRESHOLD", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "mock", cfg.LLMProvider)
	assert.Equal(t, 1500*time.Millisecond, cfg.LLMTimeout())
	assert.True(t, cfg.ReadOnly)
	assert.Equal(t, 4, cfg.DefaultRestockQty)
	assert.Equal(t, DefaultLowStockThreshold, cfg.LowStockThreshold)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "librarydesk.yaml")
	content := "httpPort: 7070\nllmProvider: mock\nlowStockThreshold: 2\npolicyFile: /etc/librarydesk/policy.rego\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_PORT", "7171")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7171, cfg.HTTPPort, "environment overrides the file")
	assert.Equal(t, "mock", cfg.LLMProvider)
	assert.Equal(t, 2, cfg.LowStockThreshold)
	assert.Equal(t, "/etc/librarydesk/policy.rego", cfg.PolicyFile)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}
