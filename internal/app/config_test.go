package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/land_records.db", cfg.Database.Path)
	require.Equal(t, "https://jamabandi.nic.in", cfg.Portal.BaseURL)
	require.Equal(t, 40*time.Second, cfg.Portal.Timeout)
	require.Equal(t, "./nakal_html_data", cfg.Portal.HTMLDir)
	require.NotEmpty(t, cfg.Portal.UserAgent)
}

func TestLoadConfigReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	contents := []byte(`
log:
  level: debug
database:
  path: /tmp/records.db
portal:
  base_url: http://127.0.0.1:9090
  timeout: 5s
  html_dir: ""
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), contents, 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "/tmp/records.db", cfg.Database.Path)
	require.Equal(t, "http://127.0.0.1:9090", cfg.Portal.BaseURL)
	require.Equal(t, 5*time.Second, cfg.Portal.Timeout)
	require.Empty(t, cfg.Portal.HTMLDir)

	// Unset keys keep their defaults.
	require.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("JAMABANDI_LOG_LEVEL", "warn")
	t.Setenv("JAMABANDI_DATABASE_PATH", "/tmp/env.db")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "warn", cfg.Log.Level)
	require.Equal(t, "/tmp/env.db", cfg.Database.Path)
}

func TestConfigureLoggingDefaultsLevel(t *testing.T) {
	require.NoError(t, ConfigureLogging("  "))
	require.NoError(t, ConfigureLogging("debug"))
}
