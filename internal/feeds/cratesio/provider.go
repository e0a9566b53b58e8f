// Package cratesio lists and searches crates on the crates.io registry.
package cratesio

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/abelbrown/feedterm/internal/feeds"
	"github.com/abelbrown/feedterm/internal/fetch"
	"github.com/abelbrown/feedterm/internal/model"
)

const (
	ID = "cratesio"

	DefaultBaseURL = "https://crates.io/api/v1"

	// maxPerPage is the largest page crates.io serves.
	maxPerPage = 100
)

// Category is a crates.io listing order.
type Category int

const (
	CategoryNew Category = iota
	JustUpdated
	MostDownloaded
	RecentlyDownloaded
)

var AllCategories = []Category{CategoryNew, JustUpdated, MostDownloaded, RecentlyDownloaded}

// ParseCategory maps a name to a Category. Unknown names are CategoryNew.
func ParseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "updated", "just_updated", "justupdated":
		return JustUpdated
	case "downloaded", "most_downloaded", "mostdownloaded":
		return MostDownloaded
	case "recent", "recently_downloaded", "recentlydownloaded":
		return RecentlyDownloaded
	default:
		return CategoryNew
	}
}

func (c Category) String() string {
	switch c {
	case JustUpdated:
		return "updated"
	case MostDownloaded:
		return "downloaded"
	case RecentlyDownloaded:
		return "recent"
	default:
		return "new"
	}
}

func (c Category) Label() string {
	switch c {
	case JustUpdated:
		return "Just Updated"
	case MostDownloaded:
		return "Most Downloaded"
	case RecentlyDownloaded:
		return "Recently Downloaded"
	default:
		return "New"
	}
}

// sortParam is the API's sort value.
func (c Category) sortParam() string {
	switch c {
	case JustUpdated:
		return "recent-updates"
	case MostDownloaded:
		return "downloads"
	case RecentlyDownloaded:
		return "recent-downloads"
	default:
		return "new"
	}
}

func (c Category) source() string {
	switch c {
	case JustUpdated:
		return "Updated Crates"
	case MostDownloaded:
		return "Popular Crates"
	case RecentlyDownloaded:
		return "Trending Crates"
	default:
		return "New Crates"
	}
}

type crate struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Downloads       int       `json:"downloads"`
	RecentDownloads *int      `json:"recent_downloads"`
	MaxVersion      string    `json:"max_version"`
	NewestVersion   string    `json:"newest_version"`
	UpdatedAt       time.Time `json:"updated_at"`
	CreatedAt       time.Time `json:"created_at"`
	Homepage        string    `json:"homepage"`
	Repository      string    `json:"repository"`
}

type cratesResponse struct {
	Crates []crate `json:"crates"`
}

// Options configures a Provider.
type Options struct {
	Category string
	Disabled bool
	BaseURL  string
	HTTP     fetch.Options
}

// Provider is the crates.io source.
type Provider struct {
	client   *fetch.Client
	baseURL  string
	disabled bool

	mu       sync.RWMutex
	category Category
}

func New(opts Options) *Provider {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	return &Provider{
		client:   fetch.New(ID, opts.HTTP),
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		disabled: opts.Disabled,
		category: ParseCategory(opts.Category),
	}
}

func (p *Provider) ID() string          { return ID }
func (p *Provider) Name() string        { return "Crates.io" }
func (p *Provider) Description() string { return "The Rust community's crate registry" }

func (p *Provider) Status() feeds.Status {
	if p.disabled {
		return feeds.Disabled
	}
	return feeds.Ready
}

func (p *Provider) Categories() []feeds.Category {
	out := make([]feeds.Category, 0, len(AllCategories))
	for _, c := range AllCategories {
		out = append(out, feeds.Category{ID: c.String(), Name: c.Label()})
	}
	return out
}

func (p *Provider) Category() Category {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.category
}

func (p *Provider) SetCategory(c Category) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.category = c
}

func (p *Provider) FetchItems(ctx context.Context, limit int) ([]model.FeedItem, error) {
	return p.FetchItemsWithOffset(ctx, 0, limit)
}

func (p *Provider) SupportsOffset() bool { return true }

// FetchItemsWithOffset reads the 1-based page that contains offset. When
// offset is not page-aligned the following page is read as well so the
// result still starts exactly at offset.
func (p *Provider) FetchItemsWithOffset(ctx context.Context, offset, limit int) ([]model.FeedItem, error) {
	if limit <= 0 {
		return nil, nil
	}
	if offset < 0 {
		offset = 0
	}
	cat := p.Category()
	perPage := min(limit, maxPerPage)
	page := offset/perPage + 1
	skip := offset % perPage

	crates, err := p.listPage(ctx, cat, page, perPage)
	if err != nil {
		return nil, err
	}
	if skip > 0 && len(crates) == perPage {
		next, err := p.listPage(ctx, cat, page+1, perPage)
		if err != nil {
			return nil, err
		}
		crates = append(crates, next...)
	}
	if skip >= len(crates) {
		return nil, nil
	}
	crates = crates[skip:]
	if len(crates) > limit {
		crates = crates[:limit]
	}
	return toFeedItems(crates, cat.source()), nil
}

func (p *Provider) listPage(ctx context.Context, cat Category, page, perPage int) ([]crate, error) {
	u := fmt.Sprintf("%s/crates?sort=%s&per_page=%d&page=%d", p.baseURL, cat.sortParam(), perPage, page)
	var resp cratesResponse
	if err := p.client.GetJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	return resp.Crates, nil
}

func (p *Provider) SupportsSearch() bool { return true }

func (p *Provider) Search(ctx context.Context, query string, limit int) ([]model.FeedItem, error) {
	if limit <= 0 {
		return nil, nil
	}
	u := fmt.Sprintf("%s/crates?q=%s&per_page=%d", p.baseURL, url.QueryEscape(query), min(limit, maxPerPage))
	var resp cratesResponse
	if err := p.client.GetJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	crates := resp.Crates
	if len(crates) > limit {
		crates = crates[:limit]
	}
	return toFeedItems(crates, "Crates.io"), nil
}

// CrateURL is the crates.io page for a crate.
func CrateURL(name string) string {
	return "https://crates.io/crates/" + url.PathEscape(name)
}

func toFeedItems(crates []crate, source string) []model.FeedItem {
	items := make([]model.FeedItem, 0, len(crates))
	for _, c := range crates {
		id := c.ID
		if id == "" {
			id = c.Name
		}
		version := c.NewestVersion
		if version == "" {
			version = c.MaxVersion
		}
		title := c.Name
		if version != "" {
			title += " v" + version
		}
		published := c.UpdatedAt
		if published.IsZero() {
			published = c.CreatedAt
		}

		fi := model.NewFeedItem(id, ID, title, source, published)
		fi.URL = CrateURL(c.Name)
		fi.Summary = strings.TrimSpace(c.Description)
		fi.Metadata.Score = model.IntPtr(c.Downloads)
		fi.Metadata.Tags = []string{"rust", "crate"}
		items = append(items, fi)
	}
	return items
}
