// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig   `mapstructure:"server"`
	Endpoints EndpointConfig `mapstructure:"endpoints"`
	Paths     PathsConfig    `mapstructure:"paths"`
	Login     LoginConfig    `mapstructure:"login"`
	Post      PostConfig     `mapstructure:"post"`
	Schedule  ScheduleConfig `mapstructure:"schedule"`
	Scraper   ScraperConfig  `mapstructure:"scraper"`
	Debug     bool           `mapstructure:"debug"`
	Errors    ErrorConfig    `mapstructure:"errors"`
}

// ServerConfig controls the intake HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// EndpointConfig names the intake routes.
type EndpointConfig struct {
	Service string `mapstructure:"service"`
	Status  string `mapstructure:"status"`
	Ping    string `mapstructure:"ping"`
}

// PathsConfig locates the queue and archival directories.
type PathsConfig struct {
	Incoming  string     `mapstructure:"incoming"`
	Posted    string     `mapstructure:"posted"`
	Processed string     `mapstructure:"processed"`
	Failed    string     `mapstructure:"failed"`
	Debug     string     `mapstructure:"debug"`
	Logs      LogsConfig `mapstructure:"logs"`
}

// LogsConfig controls the rotating log file.
type LogsConfig struct {
	Path    string `mapstructure:"path"`
	File    string `mapstructure:"file"`
	Enabled bool   `mapstructure:"enabled"`
}

// LoginConfig holds portal credentials and the login URL.
type LoginConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// PostConfig configures the downstream delivery target.
type PostConfig struct {
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

// ScheduleConfig holds the daily window and rotation cron expressions.
type ScheduleConfig struct {
	Open     string `mapstructure:"open"`
	Close    string `mapstructure:"close"`
	Logs     string `mapstructure:"logs"`
	Timezone string `mapstructure:"timezone"`
}

// ScraperConfig governs session engine behavior.
type ScraperConfig struct {
	Instances    int  `mapstructure:"instances"`
	Headless     bool `mapstructure:"headless"`
	SettleWaitMs int  `mapstructure:"settle_wait_ms"`
	NavTimeoutS  int  `mapstructure:"nav_timeout_seconds"`
}

// ErrorConfig controls process-level error escalation.
type ErrorConfig struct {
	Fatal bool `mapstructure:"fatal"`
}

// Load builds a Config from disk/environment. A missing or unparsable config
// file falls back to the packaged defaults, which are persisted back to the
// given path so the operator can see what took effect.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DOVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if writeErr := rewriteDefaults(v, path); writeErr != nil {
				return Config{}, fmt.Errorf("rewrite default config: %w", writeErr)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func rewriteDefaults(v *viper.Viper, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove corrupt config: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("endpoints.service", "/api/dove/incoming")
	v.SetDefault("endpoints.status", "/api/dove/status")
	v.SetDefault("endpoints.ping", "/api/dove/ping")
	v.SetDefault("paths.incoming", "data/incoming")
	v.SetDefault("paths.posted", "data/posted")
	v.SetDefault("paths.processed", "data/processed")
	v.SetDefault("paths.failed", "data/failed")
	v.SetDefault("paths.debug", "data/debug")
	v.SetDefault("paths.logs.path", "data/logs")
	v.SetDefault("paths.logs.file", "scraper.log")
	v.SetDefault("paths.logs.enabled", true)
	v.SetDefault("schedule.open", "0 7 * * *")
	v.SetDefault("schedule.close", "0 19 * * *")
	v.SetDefault("schedule.logs", "0 0 * * *")
	v.SetDefault("schedule.timezone", "America/New_York")
	v.SetDefault("scraper.instances", 2)
	v.SetDefault("scraper.headless", true)
	v.SetDefault("scraper.settle_wait_ms", 1500)
	v.SetDefault("scraper.nav_timeout_seconds", 45)
	v.SetDefault("debug", false)
	v.SetDefault("errors.fatal", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scraper.Instances <= 0 {
		return fmt.Errorf("scraper.instances must be > 0")
	}
	if c.Paths.Incoming == "" {
		return fmt.Errorf("paths.incoming must be set")
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone invalid: %w", err)
	}
	return nil
}

// Location resolves the schedule timezone. Validate guarantees it loads.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SettleWait converts the navigation-settle config into a duration.
func (c Config) SettleWait() time.Duration {
	return time.Duration(c.Scraper.SettleWaitMs) * time.Millisecond
}

// NavTimeout converts the navigation timeout config into a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Scraper.NavTimeoutS) * time.Second
}

// EnsureDirs creates every directory the pipeline writes to.
func (c Config) EnsureDirs() error {
	dirs := []string{c.Paths.Incoming, c.Paths.Posted, c.Paths.Processed, c.Paths.Failed, c.Paths.Logs.Path}
	if c.Debug {
		dirs = append(dirs, c.Paths.Debug)
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
