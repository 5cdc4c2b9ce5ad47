package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 30.0, cfg.Pipeline.IntervalSeconds)
	assert.Equal(t, 0.01, cfg.Pipeline.MatchThreshold)
	assert.Equal(t, 5, cfg.Pipeline.TopK)
	assert.True(t, cfg.Pipeline.IndexSegments)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
ai:
  base_url: http://localhost:11434/v1
  chat_model: llama3
pipeline:
  interval_seconds: 15
  index_segments: false
  timeouts:
    summary: 42
logging:
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434/v1", cfg.AI.BaseURL)
	assert.Equal(t, "llama3", cfg.AI.ChatModel)
	// не указанные в файле значения сохраняются
	assert.Equal(t, "text-embedding-3-small", cfg.AI.EmbeddingModel)
	assert.Equal(t, 15.0, cfg.Pipeline.IntervalSeconds)
	assert.False(t, cfg.Pipeline.IndexSegments)
	assert.Equal(t, 42, cfg.Pipeline.Timeouts.Summary)
	assert.Equal(t, 30, cfg.Pipeline.Timeouts.Subtitles)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AI_API_KEY", "env-key")
	t.Setenv("AI_CHAT_MODEL", "env-model")
	t.Setenv("STORE_PATH", "/tmp/env.db")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")

	path := writeConfig(t, "ai:\n  api_key: file-key\n  chat_model: file-model\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.AI.APIKey)
	assert.Equal(t, "env-model", cfg.AI.ChatModel)
	assert.Equal(t, "/tmp/env.db", cfg.Store.Path)
	assert.Equal(t, "redis://localhost:6379/1", cfg.Cache.RedisURL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "pipeline: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero interval", func(c *Config) { c.Pipeline.IntervalSeconds = 0 }},
		{"threshold above one", func(c *Config) { c.Pipeline.MatchThreshold = 1.5 }},
		{"negative threshold", func(c *Config) { c.Pipeline.MatchThreshold = -0.1 }},
		{"zero top k", func(c *Config) { c.Pipeline.TopK = 0 }},
		{"overlap not below chunk size", func(c *Config) { c.Pipeline.ChunkOverlap = c.Pipeline.ChunkSize }},
		{"empty store path", func(c *Config) { c.Store.Path = "" }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}
