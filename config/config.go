// Package config loads and validates the dota2-tui configuration file.
// The file lives at <user config dir>/dota2-tui/config.yaml and is
// created with serialized defaults on first run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full on-disk configuration.
type Config struct {
	API    API    `yaml:"api"`
	Images Images `yaml:"images"`
}

// API configures the access layer.
type API struct {
	BaseURL            string `yaml:"base_url"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
	CacheTTLSecs       int    `yaml:"cache_ttl_secs"`
	CacheMaxEntries    int    `yaml:"cache_max_entries"`
	MaxInflight        int    `yaml:"max_inflight"`
	LogRequests        bool   `yaml:"log_requests"`
}

// Images configures the image subsystem.
type Images struct {
	Enabled  bool   `yaml:"enabled"`
	Protocol string `yaml:"protocol"`
	CDNBase  string `yaml:"cdn_base"`
}

// Default returns the configuration used when no file exists yet.
func Default() Config {
	return Config{
		API: API{
			BaseURL:            "https://api.opendota.com/api",
			RateLimitPerMinute: 60,
			CacheTTLSecs:       300,
			CacheMaxEntries:    256,
			MaxInflight:        6,
			LogRequests:        true,
		},
		Images: Images{
			Enabled:  true,
			Protocol: "auto",
			CDNBase:  "https://cdn.cloudflare.steamstatic.com",
		},
	}
}

// Validate checks the limit values the access layer depends on.
func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("config: api.base_url must not be empty")
	}
	if c.API.RateLimitPerMinute <= 0 {
		return fmt.Errorf("config: api.rate_limit_per_minute must be positive, got %d", c.API.RateLimitPerMinute)
	}
	if c.API.CacheTTLSecs < 0 {
		return fmt.Errorf("config: api.cache_ttl_secs must be non-negative, got %d", c.API.CacheTTLSecs)
	}
	if c.API.CacheMaxEntries <= 0 {
		return fmt.Errorf("config: api.cache_max_entries must be positive, got %d", c.API.CacheMaxEntries)
	}
	if c.API.MaxInflight <= 0 {
		return fmt.Errorf("config: api.max_inflight must be positive, got %d", c.API.MaxInflight)
	}
	return nil
}

// CacheTTL returns the configured TTL as a duration.
func (a API) CacheTTL() time.Duration {
	return time.Duration(a.CacheTTLSecs) * time.Second
}

// Load reads and validates the configuration at path.
func Load(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: invalid %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadOrCreate loads the configuration at the default path, writing the
// defaults there first if no file exists.
func LoadOrCreate() (Config, string, error) {
	path, err := Path()
	if err != nil {
		return Config{}, "", err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := write(path, Default()); err != nil {
			return Config{}, "", err
		}
	}
	cfg, err := Load(path)
	if err != nil {
		return Config{}, "", err
	}
	return cfg, path, nil
}

func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o644)
}

// Path returns the configuration file location.
func Path() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "dota2-tui", "config.yaml"), nil
}

// LogPath returns the request log location, or "" when request logging
// is disabled.
func (c Config) LogPath() (string, error) {
	if !c.API.LogRequests {
		return "", nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "dota2-tui", "tui.log"), nil
}

// RecentPath returns the recent-search log location.
func RecentPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "dota2-tui", "recent.jsonl"), nil
}

// ImageCacheDir returns the on-disk image cache directory.
func ImageCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "dota2-tui", "images"), nil
}
