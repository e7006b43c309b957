// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type StorageConfig struct {
	Backend     string `yaml:"backend"` // file | postgres
	DatabaseURL string `yaml:"database_url"`
	Dir         string `yaml:"dir"` // file backend data directory
}

type RedisConfig struct {
	URL      string `yaml:"url"` // optional; enables the distributed code lock
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AdminConfig struct {
	Secret string `yaml:"secret"`
}

type AuditConfig struct {
	MaxEntries     int `yaml:"max_entries"`
	DisplayEntries int `yaml:"display_entries"`
}

type VerifyConfig struct {
	Window time.Duration `yaml:"window"`
}

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
	Redis   RedisConfig   `yaml:"redis"`
	Admin   AdminConfig   `yaml:"admin"`
	Audit   AuditConfig   `yaml:"audit"`
	Verify  VerifyConfig  `yaml:"verify"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies environment overrides
// (DATABASE_URL, ADMIN_SECRET, MAX_LOG_ENTRIES, DISPLAY_LOG_ENTRIES, PORT)
// and validates. A service that cannot reach a mutable store must not start,
// so a missing store target for the selected backend is an error here.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnv(&cfg)

	// defaults
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendFile
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "./data"
	}
	if cfg.Audit.MaxEntries <= 0 {
		cfg.Audit.MaxEntries = 50
	}
	if cfg.Audit.DisplayEntries <= 0 {
		cfg.Audit.DisplayEntries = 30
	}
	if cfg.Verify.Window <= 0 {
		cfg.Verify.Window = 24 * time.Hour
	}

	// Minimal validation
	switch cfg.Storage.Backend {
	case BackendFile:
		// dir has a default, nothing more to check
	case BackendPostgres:
		if cfg.Storage.DatabaseURL == "" {
			return nil, errors.New("storage.database_url is required for the postgres backend")
		}
	default:
		return nil, fmt.Errorf("unknown storage.backend %q", cfg.Storage.Backend)
	}
	if cfg.Admin.Secret == "" {
		return nil, errors.New("admin.secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.DatabaseURL = v
	}
	if v := os.Getenv("ADMIN_SECRET"); v != "" {
		cfg.Admin.Secret = v
	}
	if n, ok := envInt("MAX_LOG_ENTRIES"); ok {
		cfg.Audit.MaxEntries = n
	}
	if n, ok := envInt("DISPLAY_LOG_ENTRIES"); ok {
		cfg.Audit.DisplayEntries = n
	}
	if n, ok := envInt("PORT"); ok {
		cfg.Server.Port = n
	}
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
