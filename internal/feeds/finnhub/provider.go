// Package finnhub reads market news from the Finnhub API. It requires an
// API key; without one the provider reports NeedsConfig and every fetch
// fails with a not-configured error.
package finnhub

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/abelbrown/feedterm/internal/feeds"
	"github.com/abelbrown/feedterm/internal/fetch"
	"github.com/abelbrown/feedterm/internal/model"
)

const (
	ID = "finnhub"

	DefaultBaseURL = "https://finnhub.io/api/v1"
)

// NewsCategories are the news feeds Finnhub serves.
var NewsCategories = []string{"general", "forex", "crypto", "merger"}

// ParseCategory normalizes a category name. Unknown names are "general".
func ParseCategory(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range NewsCategories {
		if s == c {
			return c
		}
	}
	return "general"
}

type newsItem struct {
	Category string `json:"category"`
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	ID       int64  `json:"id"`
	Image    string `json:"image"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// Options configures a Provider.
type Options struct {
	APIKey   string
	Category string
	Disabled bool
	BaseURL  string
	HTTP     fetch.Options
}

// Provider is the Finnhub news source.
type Provider struct {
	feeds.Unsupported

	client   *fetch.Client
	baseURL  string
	apiKey   string
	category string
	disabled bool
}

func New(opts Options) *Provider {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	return &Provider{
		Unsupported: feeds.Unsupported{ProviderID: ID},
		client:      fetch.New(ID, opts.HTTP),
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		apiKey:      strings.TrimSpace(opts.APIKey),
		category:    ParseCategory(opts.Category),
		disabled:    opts.Disabled,
	}
}

func (p *Provider) ID() string          { return ID }
func (p *Provider) Name() string        { return "Finnhub" }
func (p *Provider) Description() string { return "Real-time financial news from markets worldwide" }

func (p *Provider) Status() feeds.Status {
	switch {
	case p.disabled:
		return feeds.Disabled
	case p.apiKey == "":
		return feeds.NeedsConfig
	default:
		return feeds.Ready
	}
}

func (p *Provider) Categories() []feeds.Category {
	out := make([]feeds.Category, 0, len(NewsCategories))
	for _, c := range NewsCategories {
		out = append(out, feeds.Category{ID: c, Name: strings.ToUpper(c[:1]) + c[1:]})
	}
	return out
}

func (p *Provider) FetchItems(ctx context.Context, limit int) ([]model.FeedItem, error) {
	if p.apiKey == "" {
		return nil, feeds.Errorf(feeds.KindNotConfigured, ID, "Finnhub API key not set")
	}

	u := fmt.Sprintf("%s/news?category=%s&token=%s", p.baseURL, url.QueryEscape(p.category), url.QueryEscape(p.apiKey))
	var news []newsItem
	if err := p.client.GetJSON(ctx, u, &news); err != nil {
		return nil, p.redact(err)
	}

	if limit >= 0 && len(news) > limit {
		news = news[:limit]
	}
	items := make([]model.FeedItem, 0, len(news))
	for _, n := range news {
		items = append(items, toFeedItem(n))
	}
	return items, nil
}

// redact keeps the API key out of error text; transport errors quote the
// request URL.
func (p *Provider) redact(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, p.apiKey) {
		return err
	}
	return feeds.Errorf(feeds.KindOf(err), ID, "%s", strings.ReplaceAll(msg, p.apiKey, "REDACTED"))
}

func toFeedItem(n newsItem) model.FeedItem {
	var published time.Time
	if n.Datetime > 0 {
		published = time.Unix(n.Datetime, 0)
	}
	fi := model.NewFeedItem(strconv.FormatInt(n.ID, 10), ID, n.Headline, n.Source, published)
	fi.Summary = n.Summary
	fi.URL = n.URL
	fi.Metadata.ImageURL = n.Image

	var tags []string
	for _, sym := range strings.Split(n.Related, ",") {
		if sym = strings.TrimSpace(sym); sym != "" {
			tags = append(tags, sym)
		}
	}
	if len(tags) == 0 && n.Category != "" {
		tags = []string{n.Category}
	}
	fi.Metadata.Tags = tags
	return fi
}
