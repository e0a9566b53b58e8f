// Package coord is the single owner of the provider registry and the cache.
//
// The display layer talks to a Coordinator only: it memoizes list, search,
// comment, story and preview requests in the cache, collapses concurrent
// identical requests into one fetch, and can refresh every provider on a
// timer in the background.
package coord

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/abelbrown/feedterm/internal/cache"
	"github.com/abelbrown/feedterm/internal/feeds"
	"github.com/abelbrown/feedterm/internal/logging"
	"github.com/abelbrown/feedterm/internal/model"
	"github.com/abelbrown/feedterm/internal/otel"
)

// Default TTLs per request kind.
const (
	DefaultListTTL     = 5 * time.Minute
	DefaultSearchTTL   = 15 * time.Minute
	DefaultCommentsTTL = 10 * time.Minute
	DefaultStoryTTL    = time.Hour
	DefaultPreviewTTL  = 24 * time.Hour

	DefaultRefreshInterval = 5 * time.Minute

	// DefaultFetchTimeout bounds one whole fan-out.
	DefaultFetchTimeout = 60 * time.Second
)

// Cache is the subset of *cache.Manager the coordinator uses.
type Cache interface {
	Get(key cache.Key, v any) error
	Set(key cache.Key, v any, ttl time.Duration) error
}

// Previewer builds link previews.
type Previewer interface {
	Fetch(ctx context.Context, url string) (*model.LinkPreview, error)
}

// hnThreads and redditThreads are the comment capabilities of the
// providers that have discussion threads.
type hnThreads interface {
	FetchComments(ctx context.Context, storyID int64, maxDepth int) ([]model.Comment, error)
}

type hnStories interface {
	FetchStory(ctx context.Context, id int64) (model.FeedItem, error)
}

type redditThreads interface {
	FetchComments(ctx context.Context, subreddit, postID string, maxDepth int) ([]model.Comment, error)
}

// ErrNoThread is returned by Comments for items without a discussion thread.
var ErrNoThread = errors.New("item has no comment thread")

// Options configures a Coordinator. Zero durations pick the defaults.
type Options struct {
	ListTTL     time.Duration
	SearchTTL   time.Duration
	CommentsTTL time.Duration
	StoryTTL    time.Duration
	PreviewTTL  time.Duration

	RefreshInterval time.Duration
	FetchTimeout    time.Duration

	// Filter drops unwanted items from lists and search results. Nil keeps
	// everything.
	Filter *feeds.Filter

	Previewer Previewer
	Logger    *otel.Logger

	// OnRefresh is called after every background refresh.
	OnRefresh func(items []model.FeedItem, failures []feeds.FetchFailure)
}

// Coordinator owns the registry and cache for the lifetime of the program.
// Uses context cancellation as the only stop mechanism.
type Coordinator struct {
	registry *feeds.Registry
	cache    Cache // nil disables memoization
	opts     Options
	logger   *otel.Logger

	flight singleflight.Group
	wg     sync.WaitGroup
}

// New creates a Coordinator. c may be nil.
func New(registry *feeds.Registry, c Cache, opts Options) *Coordinator {
	if opts.ListTTL <= 0 {
		opts.ListTTL = DefaultListTTL
	}
	if opts.SearchTTL <= 0 {
		opts.SearchTTL = DefaultSearchTTL
	}
	if opts.CommentsTTL <= 0 {
		opts.CommentsTTL = DefaultCommentsTTL
	}
	if opts.StoryTTL <= 0 {
		opts.StoryTTL = DefaultStoryTTL
	}
	if opts.PreviewTTL <= 0 {
		opts.PreviewTTL = DefaultPreviewTTL
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	return &Coordinator{
		registry: registry,
		cache:    c,
		opts:     opts,
		logger:   opts.Logger,
	}
}

// Registry returns the owned registry.
func (c *Coordinator) Registry() *feeds.Registry {
	return c.registry
}

// FetchAll returns up to limit items per ready provider, newest first,
// served from the cache while the last result is fresh.
func (c *Coordinator) FetchAll(ctx context.Context, limit int) []model.FeedItem {
	key := cache.ListKey("all/" + strconv.Itoa(limit))
	var items []model.FeedItem
	if c.lookup(key, &items) {
		return items
	}
	return c.Refresh(ctx, limit)
}

// Refresh fans out to every ready provider, bypassing any cached list, and
// stores the result. Concurrent refreshes for the same limit share one
// fan-out.
func (c *Coordinator) Refresh(ctx context.Context, limit int) []model.FeedItem {
	key := cache.ListKey("all/" + strconv.Itoa(limit))
	v, _, _ := c.flight.Do(key.String(), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
		defer cancel()

		start := time.Now()
		items, dropped := c.opts.Filter.Apply(c.registry.FetchAll(fetchCtx, limit))
		failures := c.registry.LastErrors()
		c.logger.Emit(otel.Event{
			Level: otel.LevelInfo,
			Kind:  otel.KindRefresh,
			Comp:  "coord",
			Count: len(items),
			Dur:   time.Since(start),
			Extra: map[string]any{"failed": len(failures), "filtered": dropped},
		})
		if len(items) > 0 {
			c.store(key, items, c.opts.ListTTL)
		}
		return items, nil
	})
	return v.([]model.FeedItem)
}

// FetchMore fetches one provider's next page. The provider's error is
// returned to the caller.
func (c *Coordinator) FetchMore(ctx context.Context, providerID string, offset, limit int) ([]model.FeedItem, error) {
	key := cache.ListKey(fmt.Sprintf("%s/%d/%d", providerID, offset, limit))
	return c.items(ctx, key, c.opts.ListTTL, func(ctx context.Context) ([]model.FeedItem, error) {
		return c.registry.FetchFromOffset(ctx, providerID, offset, limit)
	})
}

// FetchFrom fetches the first page of one provider.
func (c *Coordinator) FetchFrom(ctx context.Context, providerID string, limit int) ([]model.FeedItem, error) {
	key := cache.ListKey(fmt.Sprintf("%s/0/%d", providerID, limit))
	return c.items(ctx, key, c.opts.ListTTL, func(ctx context.Context) ([]model.FeedItem, error) {
		return c.registry.FetchFrom(ctx, providerID, limit)
	})
}

// Search runs query against one provider.
func (c *Coordinator) Search(ctx context.Context, providerID, query string, limit int) ([]model.FeedItem, error) {
	key := cache.SearchKey(fmt.Sprintf("%s\x00%d\x00%s", providerID, limit, query))
	return c.items(ctx, key, c.opts.SearchTTL, func(ctx context.Context) ([]model.FeedItem, error) {
		return c.registry.Search(ctx, providerID, query, limit)
	})
}

// items memoizes a single-provider list request.
func (c *Coordinator) items(ctx context.Context, key cache.Key, ttl time.Duration, fetch func(context.Context) ([]model.FeedItem, error)) ([]model.FeedItem, error) {
	var items []model.FeedItem
	if c.lookup(key, &items) {
		return items, nil
	}

	v, err, _ := c.flight.Do(key.String(), func() (any, error) {
		items, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		items, _ = c.opts.Filter.Apply(items)
		c.store(key, items, ttl)
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.FeedItem), nil
}

// Comments loads the discussion thread of item, dispatching on the
// back-references its provider left in Metadata.
func (c *Coordinator) Comments(ctx context.Context, item model.FeedItem, maxDepth int) ([]model.Comment, error) {
	p, ok := c.registry.Get(item.ProviderID)
	if !ok {
		return nil, feeds.Errorf(feeds.KindNotConfigured, item.ProviderID, "unknown provider")
	}

	var (
		id    string
		fetch func(context.Context) ([]model.Comment, error)
	)
	md := item.Metadata
	switch t := p.(type) {
	case hnThreads:
		if md.HNID == 0 {
			return nil, ErrNoThread
		}
		id = fmt.Sprintf("hn/%d/%d", md.HNID, maxDepth)
		fetch = func(ctx context.Context) ([]model.Comment, error) {
			return t.FetchComments(ctx, md.HNID, maxDepth)
		}
	case redditThreads:
		if md.Subreddit == "" || md.RedditID == "" {
			return nil, ErrNoThread
		}
		id = fmt.Sprintf("reddit/%s/%s/%d", md.Subreddit, md.RedditID, maxDepth)
		fetch = func(ctx context.Context) ([]model.Comment, error) {
			return t.FetchComments(ctx, md.Subreddit, md.RedditID, maxDepth)
		}
	default:
		return nil, ErrNoThread
	}

	key := cache.CommentsKey(id)
	var thread []model.Comment
	if c.lookup(key, &thread) {
		return thread, nil
	}
	v, err, _ := c.flight.Do(key.String(), func() (any, error) {
		thread, err := fetch(ctx)
		if err != nil {
			return nil, feeds.WithProvider(item.ProviderID, err)
		}
		c.store(key, thread, c.opts.CommentsTTL)
		return thread, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Comment), nil
}

// WithComments returns a copy of item with its thread attached.
func (c *Coordinator) WithComments(ctx context.Context, item model.FeedItem, maxDepth int) (model.FeedItem, error) {
	thread, err := c.Comments(ctx, item, maxDepth)
	if err != nil {
		return item, err
	}
	item.Metadata.Thread = thread
	return item, nil
}

// Story loads one item by id from a provider that can look stories up.
func (c *Coordinator) Story(ctx context.Context, providerID string, id int64) (model.FeedItem, error) {
	p, ok := c.registry.Get(providerID)
	if !ok {
		return model.FeedItem{}, feeds.Errorf(feeds.KindNotConfigured, providerID, "unknown provider")
	}
	s, ok := p.(hnStories)
	if !ok {
		return model.FeedItem{}, feeds.Errorf(feeds.KindOther, providerID, "story lookup not supported")
	}

	key := cache.StoryKey(id)
	var item model.FeedItem
	if c.lookup(key, &item) {
		return item, nil
	}
	item, err := s.FetchStory(ctx, id)
	if err != nil {
		return model.FeedItem{}, err
	}
	c.store(key, item, c.opts.StoryTTL)
	return item, nil
}

// Preview returns the link preview for url.
func (c *Coordinator) Preview(ctx context.Context, url string) (*model.LinkPreview, error) {
	if c.opts.Previewer == nil {
		return nil, errors.New("link previews disabled")
	}
	key := cache.ContentKey(url)
	var p model.LinkPreview
	if c.lookup(key, &p) {
		return &p, nil
	}
	v, err, _ := c.flight.Do(key.String(), func() (any, error) {
		p, err := c.opts.Previewer.Fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		c.store(key, p, c.opts.PreviewTTL)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.LinkPreview), nil
}

// lookup reads key into v. Misses and store failures both report false;
// store failures are logged since the caller recomputes either way.
func (c *Coordinator) lookup(key cache.Key, v any) bool {
	if c.cache == nil {
		return false
	}
	err := c.cache.Get(key, v)
	if err == nil {
		return true
	}
	if !cache.IsMiss(err) {
		logging.Warn("Cache read failed", "key", key.String(), "error", err)
		c.logger.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindCacheError, Comp: "coord", Source: key.String(), Err: err.Error()})
	}
	return false
}

func (c *Coordinator) store(key cache.Key, v any, ttl time.Duration) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(key, v, ttl); err != nil {
		logging.Warn("Cache write failed", "key", key.String(), "error", err)
		c.logger.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindCacheError, Comp: "coord", Source: key.String(), Err: err.Error()})
	}
}

// Start refreshes every provider immediately and then every
// RefreshInterval until ctx is cancelled.
func (c *Coordinator) Start(ctx context.Context, limit int) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		c.refreshAndNotify(ctx, limit)

		ticker := time.NewTicker(c.opts.RefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.refreshAndNotify(ctx, limit)
			}
		}
	}()
}

// Wait blocks until the background goroutine exits.
// Call after cancelling the context passed to Start.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) refreshAndNotify(ctx context.Context, limit int) {
	if ctx.Err() != nil {
		return
	}
	items := c.Refresh(ctx, limit)
	if c.opts.OnRefresh != nil && ctx.Err() == nil {
		c.opts.OnRefresh(items, c.registry.LastErrors())
	}
}
