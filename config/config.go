// Package config holds the explicit configuration value handed to the
// pipeline at construction time. Nothing module-level and nothing mutable:
// load once, pass down.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level wikiwatch configuration.
type Config struct {
	// BaseURL of the wiki. Default: "https://en.wikipedia.org".
	BaseURL string `yaml:"base_url"`

	// Database is the SQLite file recording open history.
	// Default: "wikiwatch.db".
	Database string `yaml:"database"`

	// MaxOpen caps how many unseen pages one run opens.
	MaxOpen int `yaml:"max_open"`

	// ConflictPolicy for duplicate page-open timestamps:
	// ignore | reject | overwrite. Default: ignore.
	ConflictPolicy string `yaml:"conflict_policy"`

	// SecretsFile is a JSON file with "username" and "password".
	// Default: "secrets.json". Environment variables WIKIWATCH_USERNAME and
	// WIKIWATCH_PASSWORD override it.
	SecretsFile string `yaml:"secrets_file"`

	// Schedule is a cron expression for daemon mode. Empty = run once.
	Schedule string `yaml:"schedule"`

	Browser BrowserConfig `yaml:"browser"`
}

// BrowserConfig controls the Chrome session.
type BrowserConfig struct {
	// Remote is the WebSocket URL of an external Chrome. Empty = launch.
	Remote string `yaml:"remote"`
	// Headful disables headless mode.
	Headful bool `yaml:"headful"`
	// NavTimeout bounds each navigation. Default: 30s.
	NavTimeout time.Duration `yaml:"nav_timeout"`
	// WatchlistSelector locates the change-list containers.
	WatchlistSelector string `yaml:"watchlist_selector"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadFile reads a YAML configuration file and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://en.wikipedia.org"
	}
	if c.Database == "" {
		c.Database = "wikiwatch.db"
	}
	if c.SecretsFile == "" {
		c.SecretsFile = "secrets.json"
	}
	if c.Browser.NavTimeout <= 0 {
		c.Browser.NavTimeout = 30 * time.Second
	}
}
