// Package arxiv reads new submissions from the arXiv RSS listings.
package arxiv

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/abelbrown/feedterm/internal/feeds"
	"github.com/abelbrown/feedterm/internal/fetch"
	"github.com/abelbrown/feedterm/internal/model"
)

const (
	ID = "arxiv"

	DefaultBaseURL = "https://rss.arxiv.org/rss"
)

// Category is an arXiv subject listing.
type Category struct {
	Path    string // RSS path segment, e.g. "cs.AI"
	Display string
	aliases []string
}

// Categories in display order. The first is the default.
var Categories = []Category{
	{"cs", "Computer Science", []string{"cs"}},
	{"cs.AI", "AI", []string{"cs.ai", "ai"}},
	{"cs.LG", "Machine Learning", []string{"cs.lg", "lg", "ml", "machine learning"}},
	{"cs.CL", "NLP", []string{"cs.cl", "cl", "nlp"}},
	{"cs.CV", "Computer Vision", []string{"cs.cv", "cv", "vision"}},
	{"cs.NE", "Neural Computing", []string{"cs.ne", "ne", "neural"}},
	{"math", "Mathematics", []string{"math", "mathematics"}},
	{"physics", "Physics", []string{"physics", "phys"}},
	{"stat", "Statistics", []string{"stat", "statistics"}},
}

// ParseCategory maps a path or alias to a Category. Unknown names are cs.
func ParseCategory(s string) Category {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		for _, a := range c.aliases {
			if s == a {
				return c
			}
		}
	}
	return Categories[0]
}

// Options configures a Provider.
type Options struct {
	Category string
	Disabled bool
	BaseURL  string
	HTTP     fetch.Options
}

// Provider is the arXiv source.
type Provider struct {
	feeds.Unsupported

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
		Unsupported: feeds.Unsupported{ProviderID: ID},
		client:      fetch.New(ID, opts.HTTP),
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		disabled:    opts.Disabled,
		category:    ParseCategory(opts.Category),
	}
}

func (p *Provider) ID() string   { return ID }
func (p *Provider) Name() string { return "arXiv" }
func (p *Provider) Description() string {
	return "Open-access research papers in physics, mathematics, and computer science"
}

func (p *Provider) Status() feeds.Status {
	if p.disabled {
		return feeds.Disabled
	}
	return feeds.Ready
}

func (p *Provider) Categories() []feeds.Category {
	out := make([]feeds.Category, 0, len(Categories))
	for _, c := range Categories {
		out = append(out, feeds.Category{ID: c.Path, Name: c.Display})
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
	cat := p.Category()
	feed, err := p.client.GetFeed(ctx, p.baseURL+"/"+cat.Path)
	if err != nil {
		return nil, err
	}

	items := make([]model.FeedItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if limit >= 0 && len(items) >= limit {
			break
		}
		if strings.TrimSpace(entry.Title) == "" {
			continue
		}
		items = append(items, toFeedItem(entry, cat))
	}
	return items, nil
}

// PaperID is the last path segment of an abstract link
// ("https://arxiv.org/abs/2401.01234" -> "2401.01234").
func PaperID(link string) string {
	link = strings.TrimRight(link, "/")
	if i := strings.LastIndex(link, "/"); i >= 0 && i < len(link)-1 {
		return link[i+1:]
	}
	if link == "" {
		return "unknown"
	}
	return link
}

func toFeedItem(entry *gofeed.Item, cat Category) model.FeedItem {
	var published time.Time
	if entry.PublishedParsed != nil {
		published = *entry.PublishedParsed
	}

	fi := model.NewFeedItem(PaperID(entry.Link), ID, fetch.CollapseSpace(entry.Title), "arXiv:"+cat.Display, published)
	fi.URL = entry.Link
	fi.Summary = fetch.PlainText(entry.Description)
	fi.Author = author(entry)
	fi.Metadata.Tags = []string{cat.Display, "paper"}
	return fi
}

func author(entry *gofeed.Item) string {
	if entry.DublinCoreExt != nil && len(entry.DublinCoreExt.Creator) > 0 {
		return strings.TrimSpace(entry.DublinCoreExt.Creator[0])
	}
	if entry.Author != nil {
		return entry.Author.Name
	}
	return ""
}
