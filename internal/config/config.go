// Package config loads the garden's settings from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"garden/internal/models"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	AI      AIConfig      `yaml:"ai"`
	Admin   AdminConfig   `yaml:"admin"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Port            string `yaml:"port"`
	SessionTTL      string `yaml:"session_ttl"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // memory, sqlite, postgres
	Path   string `yaml:"path"`
	URL    string `yaml:"url"`
	Seed   bool   `yaml:"seed"`
}

type AIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// AdminConfig is the account seeded on first start.
type AdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			SessionTTL:      "24h",
			ShutdownTimeout: "10s",
		},
		Store: StoreConfig{
			Driver: StoreSQLite,
			Path:   "./data/garden.db",
			Seed:   true,
		},
		AI: AIConfig{
			Model: "gemini-3-flash-preview",
		},
		Admin: AdminConfig{
			Email:    models.DefaultAdminEmail,
			Password: models.DefaultPassword,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// Environment variables override both.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Store.URL = v
		c.Store.Driver = StorePostgres
	}
	if v := os.Getenv("GARDEN_STORE"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("GARDEN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite store")
		}
	case StorePostgres:
		if c.Store.URL == "" {
			return fmt.Errorf("store.url is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) Addr() string { return ":" + c.Server.Port }

func (c *Config) SessionTTL() time.Duration {
	return parseDuration(c.Server.SessionTTL, 24*time.Hour)
}

func (c *Config) ShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 10*time.Second)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
