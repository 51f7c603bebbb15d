package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Storage StorageConfig
	Files   FilesConfig
	Extract ExtractConfig
	Tenants TenantConfig
	Logging LogConfig
}

// StorageConfig locates tenant roots.
// TenantsFile takes precedence over VolumesDir when both are set.
type StorageConfig struct {
	TenantsFile string `envconfig:"TENANTS_FILE"`
	VolumesDir  string `envconfig:"VOLUMES_DIR" default:"/var/lib/tenantfs/volumes"`
}

// FilesConfig holds limits for catalog operations.
type FilesConfig struct {
	MaxReadSize        int64    `envconfig:"MAX_READ_SIZE" default:"4194304"`
	SearchLimit        int      `envconfig:"SEARCH_LIMIT" default:"1000"`
	EditableExtensions []string `envconfig:"EDITABLE_EXTENSIONS"`
}

// ExtractConfig holds archive extraction limits.
type ExtractConfig struct {
	Concurrency int           `envconfig:"EXTRACT_CONCURRENCY" default:"4"`
	MaxBytes    int64         `envconfig:"EXTRACT_MAX_BYTES" default:"10737418240"`
	StaleAfter  time.Duration `envconfig:"EXTRACT_STALE_AFTER" default:"1h"`
}

// TenantConfig holds tenant-root lookup settings.
type TenantConfig struct {
	LookupMaxFailures uint32        `envconfig:"TENANT_LOOKUP_MAX_FAILURES" default:"5"`
	LookupCooldown    time.Duration `envconfig:"TENANT_LOOKUP_COOLDOWN" default:"30s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// DefaultEditableExtensions lists the extensions the catalog marks as editable
// when EDITABLE_EXTENSIONS is unset.
var DefaultEditableExtensions = []string{
	"txt", "log", "md", "json", "yml", "yaml", "toml", "properties", "cfg", "conf",
	"ini", "env", "xml", "csv", "sh", "bat", "js", "ts", "lua", "py", "sk",
	"html", "css", "mcmeta", "lang",
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if len(cfg.Files.EditableExtensions) == 0 {
		cfg.Files.EditableExtensions = DefaultEditableExtensions
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects limits that would disable core behavior.
func (c *Config) Validate() error {
	if c.Files.MaxReadSize <= 0 {
		return fmt.Errorf("MAX_READ_SIZE must be positive, got %d", c.Files.MaxReadSize)
	}
	if c.Extract.Concurrency < 1 {
		return fmt.Errorf("EXTRACT_CONCURRENCY must be at least 1, got %d", c.Extract.Concurrency)
	}
	if c.Extract.MaxBytes < 0 {
		return fmt.Errorf("EXTRACT_MAX_BYTES must not be negative, got %d", c.Extract.MaxBytes)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			VolumesDir: "/var/lib/tenantfs/volumes",
		},
		Files: FilesConfig{
			MaxReadSize:        4 << 20,
			SearchLimit:        1000,
			EditableExtensions: DefaultEditableExtensions,
		},
		Extract: ExtractConfig{
			Concurrency: 4,
			MaxBytes:    10 << 30,
			StaleAfter:  time.Hour,
		},
		Tenants: TenantConfig{
			LookupMaxFailures: 5,
			LookupCooldown:    30 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}
