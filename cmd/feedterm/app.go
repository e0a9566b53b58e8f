package main

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/abelbrown/feedterm/internal/cache"
	"github.com/abelbrown/feedterm/internal/config"
	"github.com/abelbrown/feedterm/internal/coord"
	"github.com/abelbrown/feedterm/internal/feeds"
	"github.com/abelbrown/feedterm/internal/fetch"
	"github.com/abelbrown/feedterm/internal/logging"
	"github.com/abelbrown/feedterm/internal/otel"
	"github.com/abelbrown/feedterm/internal/preview"
)

// app is everything a command needs, built once from the global options.
type app struct {
	cfg      *config.Config
	dataDir  string
	events   *otel.Logger
	recent   *otel.Recent // this run's events
	cache    *cache.Manager // nil with --no-cache or cache.enabled: false
	cacheDir string
	registry *feeds.Registry
	coord    *coord.Coordinator

	// coordCache and coordOpts let commands build a coordinator with
	// their own refresh callback.
	coordCache coord.Cache
	coordOpts  coord.Options

	command string
	started time.Time
}

func dataDir() string {
	if opts.DataDir != "" {
		return opts.DataDir
	}
	return config.DefaultDataDir()
}

func configPath() string {
	if opts.Config != "" {
		return opts.Config
	}
	return config.DefaultPath()
}

// setup loads configuration and wires the stack. Callers must Close.
func setup(command string) (*app, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, err
	}

	dir := dataDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if _, err := logging.Init(dir, opts.LogLevel); err != nil {
		return nil, err
	}
	otel.SetTraceEnabled(opts.Trace)

	events, err := otel.OpenFile(dir)
	if err != nil {
		logging.Warn("Event log unavailable", "error", err)
		events = otel.NewNullLogger()
	}

	a := &app{
		cfg:     cfg,
		dataDir: dir,
		events:  events,
		recent:  otel.NewRecent(512),
		command: command,
		started: time.Now(),
	}
	events.Mirror(a.recent)

	var c coord.Cache
	if cfg.Cache.Enabled && !opts.NoCache {
		a.cacheDir = cfg.CacheDir(dir)
		m, err := cache.Open(a.cacheDir, cfg.CacheBytes(), cache.WithLogger(events))
		if err != nil {
			// Run uncached rather than refuse to start.
			logging.Warn("Cache unavailable", "dir", a.cacheDir, "error", err)
		} else {
			a.cache = m
			c = m
		}
	}

	httpOpts := httpOptions(cfg)
	a.registry = buildRegistry(cfg, httpOpts, events)

	coordOpts := coordOptions(cfg, httpOpts)
	coordOpts.Logger = events
	a.coordCache, a.coordOpts = c, coordOpts
	a.coord = coord.New(a.registry, c, coordOpts)

	events.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindStartup,
		Comp:  "main",
		Msg:   command,
		Count: a.registry.Len(),
		Extra: map[string]any{"cache": a.cache != nil, "data_dir": dir},
	})
	logging.Info("Started", "command", command, "providers", a.registry.Len(), "cache", a.cache != nil)
	return a, nil
}

// Close flushes the cache and the event log.
func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Flush(); err != nil {
			logging.Warn("Cache flush failed", "error", err)
		}
		if err := a.cache.Close(); err != nil {
			logging.Warn("Cache close failed", "error", err)
		}
	}
	a.events.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindShutdown,
		Comp:  "main",
		Msg:   a.command,
		Dur:   time.Since(a.started),
	})
	a.events.Close()
	logging.Close()
}

func httpOptions(cfg *config.Config) fetch.Options {
	o := fetch.Options{
		ConnectTimeout: time.Duration(cfg.Fetch.ConnectTimeout) * time.Second,
		Timeout:        time.Duration(cfg.Fetch.Timeout) * time.Second,
		UserAgent:      cfg.Fetch.UserAgent,
		Backoffs:       []time.Duration{500 * time.Millisecond, 2 * time.Second},
	}
	if cfg.Fetch.RatePerSecond > 0 {
		o.Rate = rate.Limit(cfg.Fetch.RatePerSecond)
		o.Burst = max(int(cfg.Fetch.RatePerSecond), 1)
	}
	return o
}

// coordOptions maps the config onto coordinator options. Lists live for
// one refresh interval; stories, comment threads and previews for cache.ttl.
func coordOptions(cfg *config.Config, httpOpts fetch.Options) coord.Options {
	o := coord.Options{
		ListTTL:         cfg.RefreshInterval(),
		StoryTTL:        cfg.CacheTTL(),
		CommentsTTL:     cfg.CacheTTL(),
		PreviewTTL:      cfg.CacheTTL(),
		RefreshInterval: cfg.RefreshInterval(),
	}
	if cfg.Filter.Enabled {
		o.Filter = feeds.NewFilter(cfg.Filter.Keywords, cfg.Filter.URLPatterns)
	}
	if cfg.Preview.Enabled {
		o.Previewer = preview.New(httpOpts)
	}
	return o
}
