// Package polymarket lists active Polymarket prediction markets by 24-hour
// volume.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abelbrown/feedterm/internal/feeds"
	"github.com/abelbrown/feedterm/internal/fetch"
	"github.com/abelbrown/feedterm/internal/model"
)

const (
	ID = "polymarket"

	DefaultBaseURL = "https://gamma-api.polymarket.com"

	descriptionLen = 150
)

type market struct {
	ID            string    `json:"id"`
	Question      string    `json:"question"`
	Description   string    `json:"description"`
	Slug          string    `json:"slug"`
	Volume24hr    float64   `json:"volume24hr"`
	OutcomePrices string    `json:"outcomePrices"` // JSON-encoded list, e.g. "[\"0.65\", \"0.35\"]"
	CreatedAt     time.Time `json:"createdAt"`
	Category      string    `json:"category"`
	Image         string    `json:"image"`
}

// Options configures a Provider.
type Options struct {
	Disabled bool
	BaseURL  string
	HTTP     fetch.Options
}

// Provider is the Polymarket source.
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
func (p *Provider) Name() string        { return "Polymarket" }
func (p *Provider) Description() string { return "Prediction markets ranked by 24h volume" }

func (p *Provider) Status() feeds.Status {
	if p.disabled {
		return feeds.Disabled
	}
	return feeds.Ready
}

func (p *Provider) FetchItems(ctx context.Context, limit int) ([]model.FeedItem, error) {
	return p.FetchItemsWithOffset(ctx, 0, limit)
}

func (p *Provider) SupportsOffset() bool { return true }

func (p *Provider) FetchItemsWithOffset(ctx context.Context, offset, limit int) ([]model.FeedItem, error) {
	if limit <= 0 {
		return nil, nil
	}
	u := fmt.Sprintf("%s/markets?active=true&closed=false&limit=%d&offset=%d&order=volume24hr&ascending=false",
		p.baseURL, limit, max(offset, 0))

	var markets []market
	if err := p.client.GetJSON(ctx, u, &markets); err != nil {
		return nil, err
	}

	items := make([]model.FeedItem, 0, len(markets))
	for _, m := range markets {
		if m.Question == "" {
			continue
		}
		items = append(items, toFeedItem(m))
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

// MarketURL is the public page of a market.
func MarketURL(slug string) string {
	return "https://polymarket.com/event/" + slug
}

func toFeedItem(m market) model.FeedItem {
	prob := firstPrice(m.OutcomePrices)

	summary := fmt.Sprintf("%.0f%% YES", prob*100)
	if m.Volume24hr > 0 {
		summary += fmt.Sprintf(" · $%.0fK 24h volume", m.Volume24hr/1000)
	}
	if m.Description != "" {
		summary += "\n" + fetch.Truncate(m.Description, descriptionLen)
	}

	fi := model.NewFeedItem("poly-"+m.ID, ID, m.Question, "Polymarket", m.CreatedAt)
	fi.Summary = summary
	fi.URL = MarketURL(m.Slug)
	fi.Metadata.ImageURL = m.Image
	// Market probability as a sentiment: 50% is neutral.
	fi.Metadata.Sentiment = ptr(model.NewSentiment(prob*2-1, 1))
	if m.Category != "" {
		fi.Metadata.Tags = []string{m.Category}
	}
	return fi
}

// firstPrice decodes the YES price. The API encodes prices as a JSON list
// of strings; plain numbers are accepted too. Unparseable input is 0.5.
func firstPrice(encoded string) float64 {
	var raw []json.RawMessage
	if json.Unmarshal([]byte(encoded), &raw) != nil || len(raw) == 0 {
		return 0.5
	}
	var s string
	if json.Unmarshal(raw[0], &s) == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return 0.5
	}
	var f float64
	if json.Unmarshal(raw[0], &f) == nil {
		return f
	}
	return 0.5
}

func ptr[T any](v T) *T { return &v }
