package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rocker/smallrss/pkg/omdb"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Data     DataConfig     `yaml:"data"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	Omdb     OmdbConfig     `yaml:"omdb"`
	Server   ServerConfig   `yaml:"server"`
	Favicons FaviconsConfig `yaml:"favicons"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// DataConfig locates the user data directory holding legacy JSON files.
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// RefreshConfig configures the periodic feed refresh.
type RefreshConfig struct {
	Interval string `yaml:"interval"`
}

// ParseInterval returns the refresh interval as time.Duration.
func (r RefreshConfig) ParseInterval() time.Duration {
	d, err := time.ParseDuration(r.Interval)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

// OmdbConfig configures the metadata lookup queue.
type OmdbConfig struct {
	APIKey      string `yaml:"api_key"`
	MaxInflight int    `yaml:"max_inflight"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// FaviconsConfig toggles icon fetching during refresh.
type FaviconsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./smallrss.db"},
		Data:     DataConfig{Dir: "."},
		Refresh:  RefreshConfig{Interval: "15m"},
		Omdb:     OmdbConfig{MaxInflight: omdb.DefaultMaxInflight},
		Server:   ServerConfig{Port: 8080},
		Favicons: FaviconsConfig{Enabled: true},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.Omdb.APIKey = omdb.SanitizeAPIKey(cfg.Omdb.APIKey)
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SMALLRSS_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SMALLRSS_DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv("OMDB_API_KEY"); v != "" {
		cfg.Omdb.APIKey = v
	}
}
