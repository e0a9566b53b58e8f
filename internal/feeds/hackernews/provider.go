// Package hackernews reads stories and comment threads from the Hacker News
// Firebase API, and searches through the Algolia HN API.
//
// Listings are fetched in two phases: the id list for the current category,
// then item bodies in fixed-size parallel batches. The id list is kept so
// offset pagination reads from the same snapshot until the category changes.
package hackernews

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/feedterm/internal/feeds"
	"github.com/abelbrown/feedterm/internal/fetch"
	"github.com/abelbrown/feedterm/internal/logging"
	"github.com/abelbrown/feedterm/internal/model"
)

const (
	ID = "hackernews"

	DefaultBaseURL   = "https://hacker-news.firebaseio.com/v0"
	DefaultSearchURL = "https://hn.algolia.com/api/v1"

	// batchSize bounds concurrent item requests.
	batchSize = 25
)

// item is a Firebase item (story, comment, job).
type item struct {
	ID          int64   `json:"id"`
	Type        string  `json:"type"`
	By          string  `json:"by"`
	Time        int64   `json:"time"`
	Text        string  `json:"text"`
	Dead        bool    `json:"dead"`
	Deleted     bool    `json:"deleted"`
	Parent      int64   `json:"parent"`
	Kids        []int64 `json:"kids"`
	URL         string  `json:"url"`
	Score       *int    `json:"score"`
	Title       string  `json:"title"`
	Descendants *int    `json:"descendants"`
}

func (it *item) valid() bool {
	return it != nil && !it.Dead && !it.Deleted
}

func (it *item) published() time.Time {
	if it.Time <= 0 {
		return time.Time{}
	}
	return time.Unix(it.Time, 0)
}

// Options configures a Provider.
type Options struct {
	Category  string
	Disabled  bool
	BaseURL   string
	SearchURL string
	HTTP      fetch.Options
}

// Provider is the Hacker News source.
type Provider struct {
	client    *fetch.Client
	baseURL   string
	searchURL string
	disabled  bool

	// mu guards the category and the id snapshot for that category.
	mu          sync.RWMutex
	category    Category
	ids         []int64
	idsCategory Category
}

// New creates a Hacker News provider.
func New(opts Options) *Provider {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.SearchURL == "" {
		opts.SearchURL = DefaultSearchURL
	}
	return &Provider{
		client:    fetch.New(ID, opts.HTTP),
		baseURL:   opts.BaseURL,
		searchURL: opts.SearchURL,
		disabled:  opts.Disabled,
		category:  ParseCategory(opts.Category),
	}
}

func (p *Provider) ID() string          { return ID }
func (p *Provider) Name() string        { return "Hacker News" }
func (p *Provider) Description() string { return "Tech news and discussions from Y Combinator" }

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

// Category returns the current listing.
func (p *Provider) Category() Category {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.category
}

// SetCategory switches listing and drops the cached id snapshot.
func (p *Provider) SetCategory(c Category) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.category = c
	p.ids = nil
}

// FetchItems fetches the current listing and returns its first limit stories.
// Dead and deleted stories are dropped, so fewer than limit may be returned.
func (p *Provider) FetchItems(ctx context.Context, limit int) ([]model.FeedItem, error) {
	cat := p.Category()
	ids, err := p.fetchStoryIDs(ctx, cat)
	if err != nil {
		return nil, err
	}
	if limit >= 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return p.fetchStories(ctx, ids, cat)
}

func (p *Provider) SupportsOffset() bool { return true }

// FetchItemsWithOffset pages through the id snapshot taken by the last
// un-paginated fetch of the current category, fetching one if none exists.
func (p *Provider) FetchItemsWithOffset(ctx context.Context, offset, limit int) ([]model.FeedItem, error) {
	p.mu.RLock()
	cat := p.category
	var ids []int64
	if len(p.ids) > 0 && p.idsCategory == cat {
		ids = p.ids
	}
	p.mu.RUnlock()

	if ids == nil {
		var err error
		if ids, err = p.fetchStoryIDs(ctx, cat); err != nil {
			return nil, err
		}
	}

	if offset < 0 {
		offset = 0
	}
	if offset >= len(ids) || limit <= 0 {
		return nil, nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}
	return p.fetchStories(ctx, ids[offset:end], cat)
}

// fetchStoryIDs fetches the full id list for cat and stores it as the
// snapshot, unless the category changed in the meantime.
func (p *Provider) fetchStoryIDs(ctx context.Context, cat Category) ([]int64, error) {
	var ids []int64
	if err := p.client.GetJSON(ctx, fmt.Sprintf("%s/%s.json", p.baseURL, cat.Endpoint()), &ids); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.category == cat {
		p.ids = ids
		p.idsCategory = cat
	}
	p.mu.Unlock()

	return ids, nil
}

func (p *Provider) fetchItem(ctx context.Context, id int64) (*item, error) {
	var it *item
	if err := p.client.GetJSON(ctx, fmt.Sprintf("%s/item/%d.json", p.baseURL, id), &it); err != nil {
		return nil, err
	}
	return it, nil
}

// fetchItems fetches ids in parallel batches. The result is index-aligned
// with ids; entries that failed or came back null are nil. err is the first
// failure, reported only when nothing succeeded.
func (p *Provider) fetchItems(ctx context.Context, ids []int64) ([]*item, error) {
	out := make([]*item, len(ids))
	errs := make([]error, len(ids))

	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				out[i], errs[i] = p.fetchItem(ctx, ids[i])
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return nil, feeds.Wrap(feeds.KindNetwork, ID, err)
		}
	}

	var firstErr error
	for i, err := range errs {
		if err == nil {
			return out, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		logging.Debug("HN item fetch failed", "id", ids[i], "error", err)
	}
	return out, firstErr
}

func (p *Provider) fetchStories(ctx context.Context, ids []int64, cat Category) ([]model.FeedItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw, err := p.fetchItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]model.FeedItem, 0, len(raw))
	for _, it := range raw {
		if !it.valid() {
			continue
		}
		items = append(items, toFeedItem(it, cat.SourceLabel()))
	}
	return items, nil
}

// FetchStory loads one story by id.
func (p *Provider) FetchStory(ctx context.Context, id int64) (model.FeedItem, error) {
	it, err := p.fetchItem(ctx, id)
	if err != nil {
		return model.FeedItem{}, err
	}
	if !it.valid() {
		return model.FeedItem{}, feeds.Errorf(feeds.KindOther, ID, "item %d not found", id)
	}
	return toFeedItem(it, "Hacker News"), nil
}

// ItemURL is the discussion page of an HN item.
func ItemURL(id int64) string {
	return "https://news.ycombinator.com/item?id=" + strconv.FormatInt(id, 10)
}

func toFeedItem(it *item, source string) model.FeedItem {
	title := it.Title
	if title == "" {
		title = "(no title)"
	}
	fi := model.NewFeedItem(strconv.FormatInt(it.ID, 10), ID, title, source, it.published())
	fi.Author = it.By
	fi.URL = it.URL
	if fi.URL == "" {
		fi.URL = ItemURL(it.ID)
	}
	if it.Text != "" {
		fi.Summary = fetch.PlainText(it.Text)
	}
	fi.Metadata.Score = it.Score
	fi.Metadata.Comments = it.Descendants
	fi.Metadata.HNID = it.ID
	return fi
}

func (p *Provider) SupportsSearch() bool { return true }

type searchResponse struct {
	Hits []searchHit `json:"hits"`
}

type searchHit struct {
	ObjectID    string `json:"objectID"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Author      string `json:"author"`
	Points      *int   `json:"points"`
	NumComments *int   `json:"num_comments"`
	CreatedAtI  int64  `json:"created_at_i"`
	StoryText   string `json:"story_text"`
}

// Search queries the Algolia HN index for stories.
func (p *Provider) Search(ctx context.Context, query string, limit int) ([]model.FeedItem, error) {
	if limit <= 0 {
		return nil, nil
	}
	u := fmt.Sprintf("%s/search?query=%s&tags=story&hitsPerPage=%d", p.searchURL, url.QueryEscape(query), limit)

	var resp searchResponse
	if err := p.client.GetJSON(ctx, u, &resp); err != nil {
		return nil, err
	}

	items := make([]model.FeedItem, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		id, err := strconv.ParseInt(h.ObjectID, 10, 64)
		if err != nil || h.Title == "" {
			continue
		}
		it := &item{
			ID:          id,
			By:          h.Author,
			Time:        h.CreatedAtI,
			Text:        h.StoryText,
			URL:         h.URL,
			Score:       h.Points,
			Title:       h.Title,
			Descendants: h.NumComments,
		}
		items = append(items, toFeedItem(it, "Hacker News"))
		if len(items) == limit {
			break
		}
	}
	return items, nil
}
