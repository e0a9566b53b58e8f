// Package config loads the feedterm YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abelbrown/feedterm/internal/feeds/rss"
)

// Config is the persistent application configuration.
type Config struct {
	HackerNews HackerNewsConfig `yaml:"hackernews"`
	Reddit     RedditConfig     `yaml:"reddit"`
	CratesIO   CratesIOConfig   `yaml:"cratesio"`
	Finnhub    FinnhubConfig    `yaml:"finnhub"`
	Arxiv      ArxivConfig      `yaml:"arxiv"`
	Polymarket ToggleConfig     `yaml:"polymarket"`
	Manifold   ToggleConfig     `yaml:"manifold"`
	RSS        []rss.Feed       `yaml:"rss"`

	Cache   CacheConfig   `yaml:"cache"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Filter  FilterConfig  `yaml:"filter"`
	Preview ToggleConfig  `yaml:"preview"`
	Display DisplayConfig `yaml:"display"`
}

type HackerNewsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Category string `yaml:"category"`
}

type RedditConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Subreddits []string `yaml:"subreddits"`
	Sort       string   `yaml:"sort"`
}

type CratesIOConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Category string `yaml:"category"`
}

// FinnhubConfig holds the Finnhub API key. Without one the provider reports
// NeedsConfig and is skipped.
type FinnhubConfig struct {
	Enabled  bool   `yaml:"enabled"`
	APIKey   string `yaml:"api_key,omitempty"`
	BaseURL  string `yaml:"base_url"`
	Category string `yaml:"category"`
}

type ArxivConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Category string `yaml:"category"`
}

type ToggleConfig struct {
	Enabled bool `yaml:"enabled"`
}

// CacheConfig sizes the on-disk cache. TTL is in seconds.
type CacheConfig struct {
	Enabled   bool   `yaml:"enabled"`
	TTL       int    `yaml:"ttl"`
	MaxSizeMB int64  `yaml:"max_size_mb"`
	Path      string `yaml:"path,omitempty"`
}

// FetchConfig tunes outbound requests. Durations are in seconds.
type FetchConfig struct {
	ConnectTimeout  int     `yaml:"connect_timeout"`
	Timeout         int     `yaml:"timeout"`
	UserAgent       string  `yaml:"user_agent,omitempty"`
	RatePerSecond   float64 `yaml:"rate_per_second"`
	RefreshInterval int     `yaml:"refresh_interval"`
}

type FilterConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Keywords    []string `yaml:"keywords,omitempty"`
	URLPatterns []string `yaml:"url_patterns,omitempty"`
}

type DisplayConfig struct {
	ItemLimit    int `yaml:"item_limit"`
	CommentDepth int `yaml:"comment_depth"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		HackerNews: HackerNewsConfig{Enabled: true, Category: "top"},
		Reddit: RedditConfig{
			Enabled:    true,
			Subreddits: []string{"technology", "programming", "rust", "finance"},
			Sort:       "hot",
		},
		CratesIO: CratesIOConfig{Enabled: true, Category: "new"},
		Finnhub: FinnhubConfig{
			Enabled:  true,
			BaseURL:  "https://finnhub.io/api/v1",
			Category: "general",
		},
		Arxiv:      ArxivConfig{Enabled: true, Category: "cs"},
		Polymarket: ToggleConfig{Enabled: true},
		Manifold:   ToggleConfig{Enabled: true},
		Cache: CacheConfig{
			Enabled:   true,
			TTL:       3600,
			MaxSizeMB: 100,
		},
		Fetch: FetchConfig{
			ConnectTimeout:  10,
			Timeout:         30,
			RatePerSecond:   5,
			RefreshInterval: 300,
		},
		Filter:  FilterConfig{Enabled: true},
		Preview: ToggleConfig{Enabled: true},
		Display: DisplayConfig{ItemLimit: 50, CommentDepth: 3},
	}
}

// DefaultPath is ~/.feedterm/config.yaml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".feedterm", "config.yaml")
}

// Load reads the config at path over the defaults. A missing file is not an
// error. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.AutoPopulateFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return os.WriteFile(path, data, 0600) // may hold an API key
}

// AutoPopulateFromEnv applies FINNHUB_API_KEY and FEEDTERM_CACHE_DIR.
func (c *Config) AutoPopulateFromEnv() {
	if key := os.Getenv("FINNHUB_API_KEY"); key != "" {
		c.Finnhub.APIKey = key
	}
	if dir := os.Getenv("FEEDTERM_CACHE_DIR"); dir != "" {
		c.Cache.Path = dir
	}
}

// Validate rejects values the providers and cache cannot run with.
func (c *Config) Validate() error {
	if c.Cache.Enabled && c.Cache.MaxSizeMB <= 0 {
		return errors.New("config: cache max_size_mb must be greater than 0")
	}
	if c.Cache.TTL < 0 {
		return errors.New("config: cache ttl must be non-negative")
	}
	if c.Fetch.ConnectTimeout < 0 || c.Fetch.Timeout < 0 || c.Fetch.RefreshInterval < 0 {
		return errors.New("config: fetch durations must be non-negative")
	}
	if c.Display.CommentDepth < 0 {
		return errors.New("config: display comment_depth must be non-negative")
	}
	for i, f := range c.RSS {
		if f.URL == "" {
			return fmt.Errorf("config: rss feed %d (%q) has no url", i, f.Name)
		}
	}
	return nil
}

// CacheDir resolves the cache directory: the configured path (with ~
// expanded) or <dataDir>/cache.
func (c *Config) CacheDir(dataDir string) string {
	if c.Cache.Path == "" {
		return filepath.Join(dataDir, "cache")
	}
	return expandHome(c.Cache.Path)
}

// CacheBytes is the cache budget in bytes.
func (c *Config) CacheBytes() int64 {
	return c.Cache.MaxSizeMB * 1024 * 1024
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTL) * time.Second
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Fetch.RefreshInterval) * time.Second
}

// DefaultDataDir is ~/.feedterm.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".feedterm")
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
