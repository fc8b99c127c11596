// Package config handles chatroom configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/thousandtech/chatroom/internal/paging"
	"github.com/thousandtech/chatroom/internal/timeline"
)

// Config is the root configuration structure.
type Config struct {
	// Global settings
	Global GlobalConfig `yaml:"global" mapstructure:"global"`

	// Server is the chat-room service to talk to.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// User holds the default user name.
	User UserConfig `yaml:"user" mapstructure:"user"`

	// Timeline settings
	Timeline TimelineConfig `yaml:"timeline" mapstructure:"timeline"`

	// Paging settings
	Paging PagingConfig `yaml:"paging" mapstructure:"paging"`

	// Cache settings
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`
}

// GlobalConfig contains global settings.
type GlobalConfig struct {
	// DataDir is where chatroom stores its data (default: ~/.local/share/chatroom).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/chatroom).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// ServerConfig describes the chat-room service.
type ServerConfig struct {
	// URL is the HTTP base URL, e.g. http://localhost:5000.
	URL string `yaml:"url" mapstructure:"url"`

	// WSPath is the realtime endpoint path relative to URL.
	WSPath string `yaml:"ws_path" mapstructure:"ws_path"`

	// Timeout bounds each HTTP request.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// ReconnectInterval is the pause between realtime reconnect attempts.
	ReconnectInterval time.Duration `yaml:"reconnect_interval" mapstructure:"reconnect_interval"`
}

// UserConfig holds the default identity.
type UserConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
}

// TimelineConfig controls time normalization.
type TimelineConfig struct {
	// Timezone is the reference zone all times are displayed in.
	Timezone string `yaml:"timezone" mapstructure:"timezone"`
}

// PagingConfig controls history pagination.
type PagingConfig struct {
	PageSize int `yaml:"page_size" mapstructure:"page_size"`

	// AdvanceEagerly moves the offset before a page arrives. A failed page is skipped.
	AdvanceEagerly bool `yaml:"advance_eagerly" mapstructure:"advance_eagerly"`
}

// CacheConfig controls the local transcript cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Path is the SQLite file (default: DataDir/transcripts.db).
	Path string `yaml:"path" mapstructure:"path"`

	// Fallback answers a failed history fetch in the TUI from the cache
	// instead of reporting the failure.
	Fallback bool `yaml:"fallback" mapstructure:"fallback"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is where the terminal UI writes logs (default: DataDir/chatroom.log).
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// TUIConfig contains TUI settings.
type TUIConfig struct {
	// RefreshInterval is how often divider labels are recomputed.
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`

	// Theme is the color theme (default, high-contrast).
	Theme string `yaml:"theme" mapstructure:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(homeDir, ".local", "share", "chatroom"),
			ConfigDir: filepath.Join(homeDir, ".config", "chatroom"),
		},
		Server: ServerConfig{
			URL:               "http://localhost:5000",
			WSPath:            "/ws",
			Timeout:           10 * time.Second,
			ReconnectInterval: 2 * time.Second,
		},
		Timeline: TimelineConfig{
			Timezone: timeline.DefaultZoneName,
		},
		Paging: PagingConfig{
			PageSize: paging.DefaultPageSize,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    "", // Will be set to DataDir/transcripts.db
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		TUI: TUIConfig{
			RefreshInterval: 30 * time.Second,
			Theme:           "default",
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("server.url must be an http(s) URL, got %q", c.Server.URL)
	}

	if c.Server.Timeout < 100*time.Millisecond {
		return fmt.Errorf("server.timeout must be at least 100ms")
	}

	if c.Server.ReconnectInterval < 10*time.Millisecond {
		return fmt.Errorf("server.reconnect_interval must be at least 10ms")
	}

	if c.Paging.PageSize < 1 || c.Paging.PageSize > 500 {
		return fmt.Errorf("paging.page_size must be between 1 and 500")
	}

	if tz := strings.TrimSpace(c.Timeline.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil && tz != timeline.DefaultZoneName {
			return fmt.Errorf("timeline.timezone %q is unknown: %w", tz, err)
		}
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console")
	}

	if c.TUI.RefreshInterval < time.Second {
		return fmt.Errorf("tui.refresh_interval must be at least 1s")
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Global.DataDir,
		c.Global.ConfigDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// CachePath returns the full transcript cache path.
func (c *Config) CachePath() string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	return filepath.Join(c.Global.DataDir, "transcripts.db")
}

// LogFilePath returns the log file used by the terminal UI.
func (c *Config) LogFilePath() string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	return filepath.Join(c.Global.DataDir, "chatroom.log")
}

// StatePath returns the TUI state file path.
func (c *Config) StatePath() string {
	return filepath.Join(c.Global.DataDir, "tui-state.json")
}

// ContextPath returns the login context file path.
func (c *Config) ContextPath() string {
	return filepath.Join(c.Global.ConfigDir, "context.yaml")
}

// Zone resolves the configured reference timezone.
func (c *Config) Zone() *time.Location {
	return timeline.LoadZone(c.Timeline.Timezone)
}
