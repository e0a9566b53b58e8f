// Package manifold lists and searches open Manifold prediction markets.
package manifold

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/abelbrown/feedterm/internal/feeds"
	"github.com/abelbrown/feedterm/internal/fetch"
	"github.com/abelbrown/feedterm/internal/model"
)

const (
	ID = "manifold"

	DefaultBaseURL = "https://api.manifold.markets"

	descriptionLen = 150
)

type market struct {
	ID                string  `json:"id"`
	Question          string  `json:"question"`
	Slug              string  `json:"slug"`
	URL               string  `json:"url"`
	Probability       float64 `json:"probability"`
	Volume24Hours     float64 `json:"volume24Hours"`
	IsResolved        bool    `json:"isResolved"`
	CreatedTime       int64   `json:"createdTime"`
	CreatorUsername   string  `json:"creatorUsername"`
	CreatorName       string  `json:"creatorName"`
	TextDescription   string  `json:"textDescription"`
	UniqueBettorCount int     `json:"uniqueBettorCount"`
}

// Options configures a Provider.
type Options struct {
	Disabled bool
	BaseURL  string
	HTTP     fetch.Options
}

// Provider is the Manifold source.
type Provider struct {
	feeds.Unsupported

	client   *fetch.Client
	baseURL  string
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
		disabled:    opts.Disabled,
	}
}

func (p *Provider) ID() string          { return ID }
func (p *Provider) Name() string        { return "Manifold" }
func (p *Provider) Description() string { return "Play-money prediction markets" }

func (p *Provider) Status() feeds.Status {
	if p.disabled {
		return feeds.Disabled
	}
	return feeds.Ready
}

// FetchItems lists open markets by 24-hour volume.
func (p *Provider) FetchItems(ctx context.Context, limit int) ([]model.FeedItem, error) {
	if limit <= 0 {
		return nil, nil
	}
	return p.search(ctx, url.Values{
		"limit":  {fmt.Sprint(limit)},
		"sort":   {"24-hour-vol"},
		"filter": {"open"},
	}, limit)
}

func (p *Provider) SupportsSearch() bool { return true }

// Search matches open markets against query, most relevant first.
func (p *Provider) Search(ctx context.Context, query string, limit int) ([]model.FeedItem, error) {
	if limit <= 0 {
		return nil, nil
	}
	return p.search(ctx, url.Values{
		"term":   {query},
		"limit":  {fmt.Sprint(limit)},
		"sort":   {"score"},
		"filter": {"open"},
	}, limit)
}

func (p *Provider) search(ctx context.Context, params url.Values, limit int) ([]model.FeedItem, error) {
	var markets []market
	if err := p.client.GetJSON(ctx, p.baseURL+"/v0/search-markets?"+params.Encode(), &markets); err != nil {
		return nil, err
	}

	items := make([]model.FeedItem, 0, len(markets))
	for _, m := range markets {
		if m.Question == "" || m.IsResolved {
			continue
		}
		items = append(items, toFeedItem(m))
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func toFeedItem(m market) model.FeedItem {
	summary := fmt.Sprintf("%.0f%% YES", m.Probability*100)
	if m.UniqueBettorCount > 0 {
		summary += fmt.Sprintf(" · %d traders", m.UniqueBettorCount)
	}
	if m.Volume24Hours > 0 {
		summary += fmt.Sprintf(" · M$%.0f 24h", m.Volume24Hours)
	}
	if m.TextDescription != "" {
		summary += "\n" + fetch.Truncate(m.TextDescription, descriptionLen)
	}

	var created time.Time
	if m.CreatedTime > 0 {
		created = time.UnixMilli(m.CreatedTime)
	}

	marketURL := m.URL
	if marketURL == "" {
		marketURL = fmt.Sprintf("https://manifold.markets/%s/%s", m.CreatorUsername, m.Slug)
	}

	fi := model.NewFeedItem("manifold-"+m.ID, ID, m.Question, "Manifold", created)
	fi.Summary = summary
	fi.URL = marketURL
	fi.Author = m.CreatorName
	if m.UniqueBettorCount > 0 {
		fi.Metadata.Score = model.IntPtr(m.UniqueBettorCount)
	}
	return fi
}
