package main

import (
	"github.com/abelbrown/feedterm/internal/config"
	"github.com/abelbrown/feedterm/internal/feeds"
	"github.com/abelbrown/feedterm/internal/feeds/arxiv"
	"github.com/abelbrown/feedterm/internal/feeds/cratesio"
	"github.com/abelbrown/feedterm/internal/feeds/finnhub"
	"github.com/abelbrown/feedterm/internal/feeds/hackernews"
	"github.com/abelbrown/feedterm/internal/feeds/manifold"
	"github.com/abelbrown/feedterm/internal/feeds/polymarket"
	"github.com/abelbrown/feedterm/internal/feeds/reddit"
	"github.com/abelbrown/feedterm/internal/feeds/rss"
	"github.com/abelbrown/feedterm/internal/fetch"
	"github.com/abelbrown/feedterm/internal/otel"
)

// buildRegistry registers every provider named in cfg. Disabled providers
// are still registered so they show up in status listings; the registry
// skips them when fetching.
func buildRegistry(cfg *config.Config, httpOpts fetch.Options, events *otel.Logger) *feeds.Registry {
	reg := feeds.NewRegistry(events)

	reg.Register(hackernews.New(hackernews.Options{
		Category: cfg.HackerNews.Category,
		Disabled: !cfg.HackerNews.Enabled,
		HTTP:     httpOpts,
	}))
	reg.Register(reddit.New(reddit.Options{
		Subreddits: cfg.Reddit.Subreddits,
		Sort:       cfg.Reddit.Sort,
		Disabled:   !cfg.Reddit.Enabled,
		HTTP:       httpOpts,
	}))
	reg.Register(cratesio.New(cratesio.Options{
		Category: cfg.CratesIO.Category,
		Disabled: !cfg.CratesIO.Enabled,
		HTTP:     httpOpts,
	}))
	reg.Register(finnhub.New(finnhub.Options{
		APIKey:   cfg.Finnhub.APIKey,
		Category: cfg.Finnhub.Category,
		BaseURL:  cfg.Finnhub.BaseURL,
		Disabled: !cfg.Finnhub.Enabled,
		HTTP:     httpOpts,
	}))
	reg.Register(arxiv.New(arxiv.Options{
		Category: cfg.Arxiv.Category,
		Disabled: !cfg.Arxiv.Enabled,
		HTTP:     httpOpts,
	}))
	reg.Register(polymarket.New(polymarket.Options{
		Disabled: !cfg.Polymarket.Enabled,
		HTTP:     httpOpts,
	}))
	reg.Register(manifold.New(manifold.Options{
		Disabled: !cfg.Manifold.Enabled,
		HTTP:     httpOpts,
	}))
	for _, f := range cfg.RSS {
		reg.Register(rss.New(f, httpOpts))
	}

	return reg
}
