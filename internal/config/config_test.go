package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "127.0.0.1:38080", cfg.ListenAddr())
	assert.Equal(t, 120, cfg.Engine.GraphWindowDays)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  request_timeout: 5s
database:
  driver: postgres
  dsn: "host=db dbname=charmlink"
engine:
  default_timezone: America/Chicago
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "host=db dbname=charmlink", cfg.Database.DSN)
	// untouched sections keep defaults
	assert.Equal(t, "X-User-ID", cfg.Auth.UserHeader)
	assert.Equal(t, 120, cfg.Engine.GraphWindowDays)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Chicago", loc.String())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv("CHARMLINK_PORT", "9100")
	t.Setenv("CHARMLINK_DB", "/tmp/charmlink-test.db")
	t.Setenv("CHARMLINK_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "/tmp/charmlink-test.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadMissingDefaultFileIsFine(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CHARMLINK_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoadBadPortEnv(t *testing.T) {
	path := writeConfig(t, "{}\n")
	t.Setenv("CHARMLINK_PORT", "eighty")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"empty header", func(c *Config) { c.Auth.UserHeader = "" }},
		{"bad timezone", func(c *Config) { c.Engine.DefaultTimezone = "Mars/Olympus" }},
		{"window too large", func(c *Config) { c.Engine.GraphWindowDays = 5000 }},
		{"zero batch", func(c *Config) { c.Engine.MaxHabitsPerCall = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
