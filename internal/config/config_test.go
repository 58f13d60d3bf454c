package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "/api/dove/incoming", cfg.Endpoints.Service)
	require.Equal(t, "/api/dove/status", cfg.Endpoints.Status)
	require.Equal(t, "/api/dove/ping", cfg.Endpoints.Ping)
	require.Equal(t, "data/incoming", cfg.Paths.Incoming)
	require.Equal(t, "0 7 * * *", cfg.Schedule.Open)
	require.Equal(t, "0 19 * * *", cfg.Schedule.Close)
	require.Equal(t, "America/New_York", cfg.Schedule.Timezone)
	require.Equal(t, 2, cfg.Scraper.Instances)
	require.True(t, cfg.Scraper.Headless)
	require.False(t, cfg.Debug)
	require.False(t, cfg.Errors.Fatal)
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
paths:
  incoming: /srv/dove/incoming
login:
  url: https://portal.example.test/login
  username: svc-account
  password: hunter2
post:
  url: https://consumer.example.test/results
  headers:
    X-API-Key: abc
schedule:
  open: "0 8 * * *"
  close: "0 18 * * *"
  timezone: UTC
scraper:
  instances: 4
  headless: false
debug: true
errors:
  fatal: true
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "/srv/dove/incoming", cfg.Paths.Incoming)
	require.Equal(t, "svc-account", cfg.Login.Username)
	require.Equal(t, "abc", cfg.Post.Headers["X-API-Key"])
	require.Equal(t, "0 8 * * *", cfg.Schedule.Open)
	require.Equal(t, 4, cfg.Scraper.Instances)
	require.False(t, cfg.Scraper.Headless)
	require.True(t, cfg.Debug)
	require.True(t, cfg.Errors.Fatal)

	// Untouched values keep their defaults.
	require.Equal(t, "/api/dove/incoming", cfg.Endpoints.Service)
	require.Equal(t, "data/posted", cfg.Paths.Posted)
}

// A missing or unparsable config file falls back to defaults and the
// defaults are written back so the operator can see what took effect.
func TestLoadRewritesCorruptConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":: not yaml ::"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)

	rewritten, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(rewritten), "incoming")
}

func TestLoadWritesMissingConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Scraper.Instances)
	require.FileExists(t, path)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"zero instances", func(c *Config) { c.Scraper.Instances = 0 }},
		{"no incoming dir", func(c *Config) { c.Paths.Incoming = "" }},
		{"bad timezone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	t.Parallel()

	cfg := Config{Scraper: ScraperConfig{SettleWaitMs: 1500, NavTimeoutS: 45}}
	require.Equal(t, 1500*time.Millisecond, cfg.SettleWait())
	require.Equal(t, 45*time.Second, cfg.NavTimeout())
}

func TestEnsureDirs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cfg := Config{
		Debug: true,
		Paths: PathsConfig{
			Incoming:  filepath.Join(root, "incoming"),
			Posted:    filepath.Join(root, "posted"),
			Processed: filepath.Join(root, "processed"),
			Failed:    filepath.Join(root, "failed"),
			Debug:     filepath.Join(root, "debug"),
			Logs:      LogsConfig{Path: filepath.Join(root, "logs")},
		},
	}
	require.NoError(t, cfg.EnsureDirs())
	for _, dir := range []string{"incoming", "posted", "processed", "failed", "debug", "logs"} {
		require.DirExists(t, filepath.Join(root, dir))
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	t.Parallel()

	cfg := Config{Schedule: ScheduleConfig{Timezone: "Nowhere/Invalid"}}
	require.Equal(t, time.UTC, cfg.Location())
}
