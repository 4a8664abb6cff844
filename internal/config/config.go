package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all charmlink configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Engine   EngineConfig   `yaml:"engine"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Bind           string        `yaml:"bind"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	Path   string `yaml:"path"`   // sqlite file
	DSN    string `yaml:"dsn"`    // postgres connection string, falls back to the keyring
}

type AuthConfig struct {
	// UserHeader carries the caller identity set by the upstream auth proxy.
	UserHeader string `yaml:"user_header"`
}

type EngineConfig struct {
	DefaultTimezone  string `yaml:"default_timezone"`
	GraphWindowDays  int    `yaml:"graph_window_days"`
	MaxGraphWindow   int    `yaml:"max_graph_window"`
	MaxHabitsPerCall int    `yaml:"max_habits_per_call"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind:           "127.0.0.1",
			Port:           38080,
			RequestTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "", // resolved at runtime via store.DefaultDBPath()
		},
		Auth: AuthConfig{
			UserHeader: "X-User-ID",
		},
		Engine: EngineConfig{
			DefaultTimezone:  "UTC",
			GraphWindowDays:  120,
			MaxGraphWindow:   730,
			MaxHabitsPerCall: 10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns ~/.charmlink/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".charmlink", "config.yaml"), nil
}

// Load builds the effective config: defaults, then the YAML file at path (if
// any), then environment overrides. An empty path tries CHARMLINK_CONFIG and
// then DefaultPath; a missing default file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = os.Getenv("CHARMLINK_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("CHARMLINK_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("CHARMLINK_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("CHARMLINK_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("CHARMLINK_BIND"); v != "" {
		c.Server.Bind = v
	}
	if v := os.Getenv("CHARMLINK_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CHARMLINK_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("CHARMLINK_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Auth.UserHeader == "" {
		return fmt.Errorf("auth.user_header is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Engine.MaxGraphWindow < 1 {
		return fmt.Errorf("engine.max_graph_window must be positive")
	}
	if c.Engine.GraphWindowDays < 1 || c.Engine.GraphWindowDays > c.Engine.MaxGraphWindow {
		return fmt.Errorf("engine.graph_window_days must be between 1 and %d", c.Engine.MaxGraphWindow)
	}
	if c.Engine.MaxHabitsPerCall < 1 {
		return fmt.Errorf("engine.max_habits_per_call must be positive")
	}
	return nil
}

// Location resolves engine.default_timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Engine.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("engine.default_timezone: %w", err)
	}
	return loc, nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
