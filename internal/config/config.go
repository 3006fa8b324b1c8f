// Package config loads and validates the PocketPaw client
// configuration via viper. Settings come from, in order of precedence:
// flags bound by the command layer, POCKETPAW_* environment variables,
// and a yaml config file in the user's config directory.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete client configuration.
type Config struct {
	Service   ServiceConfig   `mapstructure:"service"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Feed      FeedConfig      `mapstructure:"feed"`
	TUI       TUIConfig       `mapstructure:"tui"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServiceConfig locates the remote Mission Control service.
type ServiceConfig struct {
	// BaseURL is the HTTP endpoint of the orchestration service.
	BaseURL string `mapstructure:"base_url"`
	// StreamURL is the WebSocket endpoint for the event stream.
	// If empty, it is derived from BaseURL (http -> ws).
	StreamURL string `mapstructure:"stream_url"`
	// TimeoutSeconds bounds each command request.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// ExecutionConfig controls command-side execution guards.
type ExecutionConfig struct {
	// MaxConcurrentTasks caps how many tasks may run at once before the
	// gateway rejects further run commands.
	MaxConcurrentTasks int `mapstructure:"max_concurrent_tasks"`
}

// FeedConfig controls the activity feed.
type FeedConfig struct {
	// Limit is the number of most-recent activities kept; older entries
	// are dropped.
	Limit int `mapstructure:"limit"`
}

// TUIConfig controls the dashboard behavior.
type TUIConfig struct {
	// RefreshIntervalMs is how often the dashboard redraws while idle.
	RefreshIntervalMs int `mapstructure:"refresh_interval_ms"`
	// MaxOutputLines limits how many output entries to display per
	// running task.
	MaxOutputLines int `mapstructure:"max_output_lines"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Dir is where client.log is written; empty means stderr.
	Dir string `mapstructure:"dir"`
}

// Timeout returns the per-request timeout as a duration.
func (s *ServiceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// RefreshInterval returns the dashboard refresh interval as a duration.
func (t *TUIConfig) RefreshInterval() time.Duration {
	return time.Duration(t.RefreshIntervalMs) * time.Millisecond
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			BaseURL:        "http://localhost:8765",
			TimeoutSeconds: 15,
		},
		Execution: ExecutionConfig{
			MaxConcurrentTasks: 5,
		},
		Feed: FeedConfig{
			Limit: 50,
		},
		TUI: TUIConfig{
			RefreshIntervalMs: 500,
			MaxOutputLines:    200,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SetDefaults registers default values with viper so they apply even
// without a config file.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("service.base_url", defaults.Service.BaseURL)
	viper.SetDefault("service.stream_url", defaults.Service.StreamURL)
	viper.SetDefault("service.timeout_seconds", defaults.Service.TimeoutSeconds)

	viper.SetDefault("execution.max_concurrent_tasks", defaults.Execution.MaxConcurrentTasks)

	viper.SetDefault("feed.limit", defaults.Feed.Limit)

	viper.SetDefault("tui.refresh_interval_ms", defaults.TUI.RefreshIntervalMs)
	viper.SetDefault("tui.max_output_lines", defaults.TUI.MaxOutputLines)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load unmarshals and validates the current viper state.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the directory where the config file lives.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pocketpaw")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pocketpaw"
	}
	return filepath.Join(home, ".config", "pocketpaw")
}
