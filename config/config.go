// Package config loads service configuration from the environment.
//
// Variables are read from a .env file when present, then from the process
// environment. Every key carries the CAROUSEL_ prefix and maps onto a
// section and field by its first underscore:
//
//	CAROUSEL_STORAGE_TYPE      -> storage.type
//	CAROUSEL_OPENAI_API_KEY    -> openai.api_key
//	CAROUSEL_EXPORT_ASSET_DIR  -> export.asset_dir
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from variable names before mapping.
const EnvPrefix = "CAROUSEL_"

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Storage StorageConfig `koanf:"storage"`
	OpenAI  OpenAIConfig  `koanf:"openai"`
	Auth    AuthConfig    `koanf:"auth"`
	Export  ExportConfig  `koanf:"export"`
}

type ServerConfig struct {
	Listen          string        `koanf:"listen"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	AllowedOrigins  string        `koanf:"allowed_origins"`
}

// Origins splits the comma-separated CORS origin list.
func (s ServerConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// StorageConfig selects the persistence backend: memory, filesystem, sqlite
// or s3.
type StorageConfig struct {
	Type      string `koanf:"type"`
	LocalPath string `koanf:"local_path"`
	DSN       string `koanf:"dsn"`
	S3Bucket  string `koanf:"s3_bucket"`
}

type OpenAIConfig struct {
	APIKey     string        `koanf:"api_key"`
	BaseURL    string        `koanf:"base_url"`
	Model      string        `koanf:"model"`
	Timeout    time.Duration `koanf:"timeout"`
	RateLimit  float64       `koanf:"rate_limit"`
	Burst      int           `koanf:"burst"`
	MaxRetries int           `koanf:"max_retries"`
}

type AuthConfig struct {
	// JWTSecret verifies bearer tokens. Empty runs every request as the
	// anonymous user.
	JWTSecret string `koanf:"jwt_secret"`
}

type ExportConfig struct {
	AssetDir  string        `koanf:"asset_dir"`
	Retention time.Duration `koanf:"retention"`
	// AssetHosts is a comma-separated allow-list of hosts that remote image
	// sources may be fetched from. Empty disables remote fetching.
	AssetHosts string `koanf:"asset_hosts"`
}

// Hosts splits the comma-separated asset host list.
func (e ExportConfig) Hosts() []string {
	var out []string
	for _, h := range strings.Split(e.AssetHosts, ",") {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			out = append(out, h)
		}
	}
	return out
}

// Load reads .env (if any) and the CAROUSEL_ environment, applies defaults
// and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps CAROUSEL_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":3002"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.AllowedOrigins == "" {
		cfg.Server.AllowedOrigins = "https://*,http://*"
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "memory"
	}
	cfg.Storage.Type = strings.ToLower(cfg.Storage.Type)
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "./data"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "carousels.db"
	}

	// The unprefixed name is what most OpenAI tooling exports.
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = "https://api.openai.com"
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.OpenAI.Timeout == 0 {
		cfg.OpenAI.Timeout = 60 * time.Second
	}
	if cfg.OpenAI.RateLimit == 0 {
		cfg.OpenAI.RateLimit = 1
	}
	if cfg.OpenAI.Burst == 0 {
		cfg.OpenAI.Burst = 2
	}

	if cfg.Export.Retention == 0 {
		cfg.Export.Retention = 30 * time.Minute
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Type {
	case "memory", "filesystem", "sqlite":
	case "s3":
		if c.Storage.S3Bucket == "" {
			errs = append(errs, errors.New("storage.s3_bucket is required for s3 storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.type %q", c.Storage.Type))
	}
	if c.Server.Listen == "" {
		errs = append(errs, errors.New("server.listen is required"))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must not be negative"))
	}
	if c.OpenAI.Timeout < 0 {
		errs = append(errs, errors.New("openai.timeout must not be negative"))
	}
	if c.OpenAI.RateLimit < 0 {
		errs = append(errs, errors.New("openai.rate_limit must not be negative"))
	}
	if c.OpenAI.Burst < 0 {
		errs = append(errs, errors.New("openai.burst must not be negative"))
	}
	if c.Export.Retention < 0 {
		errs = append(errs, errors.New("export.retention must not be negative"))
	}
	return errors.Join(errs...)
}

// GenerationEnabled reports whether an OpenAI key is configured.
func (c *Config) GenerationEnabled() bool {
	return c.OpenAI.APIKey != ""
}
