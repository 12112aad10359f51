package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"CAROUSEL_STORAGE_TYPE":            "storage.type",
		"CAROUSEL_OPENAI_API_KEY":          "openai.api_key",
		"CAROUSEL_SERVER_SHUTDOWN_TIMEOUT": "server.shutdown_timeout",
		"CAROUSEL_DEBUG":                   "debug",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":3002", cfg.Server.Listen)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"https://*", "http://*"}, cfg.Server.Origins())
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, "./data", cfg.Storage.LocalPath)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, 1.0, cfg.OpenAI.RateLimit)
	assert.Equal(t, 30*time.Minute, cfg.Export.Retention)
	assert.False(t, cfg.GenerationEnabled())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CAROUSEL_SERVER_LISTEN", ":8080")
	t.Setenv("CAROUSEL_SERVER_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("CAROUSEL_STORAGE_TYPE", "SQLite")
	t.Setenv("CAROUSEL_STORAGE_DSN", "/tmp/x.db")
	t.Setenv("CAROUSEL_OPENAI_API_KEY", "sk-test")
	t.Setenv("CAROUSEL_OPENAI_TIMEOUT", "15s")
	t.Setenv("CAROUSEL_OPENAI_RATE_LIMIT", "0.5")
	t.Setenv("CAROUSEL_OPENAI_MAX_RETRIES", "5")
	t.Setenv("CAROUSEL_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("CAROUSEL_EXPORT_ASSET_DIR", "/srv/uploads")
	t.Setenv("CAROUSEL_EXPORT_ASSET_HOSTS", " cdn.example.com, Images.Example.org ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.Origins())
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, "/tmp/x.db", cfg.Storage.DSN)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, 15*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, 0.5, cfg.OpenAI.RateLimit)
	assert.Equal(t, 5, cfg.OpenAI.MaxRetries)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "/srv/uploads", cfg.Export.AssetDir)
	assert.Equal(t, []string{"cdn.example.com", "images.example.org"}, cfg.Export.Hosts())
	assert.True(t, cfg.GenerationEnabled())
}

func TestLoad_OpenAIKeyFallback(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OPENAI_API_KEY", "sk-plain")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-plain", cfg.OpenAI.APIKey)
}

func TestValidate(t *testing.T) {
	t.Run("s3 needs a bucket", func(t *testing.T) {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.Storage.Type = "s3"
		assert.ErrorContains(t, cfg.Validate(), "s3_bucket")

		cfg.Storage.S3Bucket = "carousels"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("unknown storage", func(t *testing.T) {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.Storage.Type = "redis"
		assert.ErrorContains(t, cfg.Validate(), "redis")
	})

	t.Run("collects every problem", func(t *testing.T) {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.OpenAI.RateLimit = -1
		cfg.Export.Retention = -time.Second
		err := cfg.Validate()
		assert.ErrorContains(t, err, "rate_limit")
		assert.ErrorContains(t, err, "retention")
	})
}
