package feeds

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/feedterm/internal/logging"
	"github.com/abelbrown/feedterm/internal/model"
	"github.com/abelbrown/feedterm/internal/otel"
)

// FetchFailure records one provider's failure during a fan-out.
type FetchFailure struct {
	ProviderID string
	Err        error
	At         time.Time
}

// Registry owns the set of providers and drives fetches across them.
//
// Registration order is preserved and observable: All, Ready and FetchAll
// results (for equal timestamps) follow it. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string

	errMu    sync.Mutex
	failures map[string]FetchFailure

	logger *otel.Logger
}

// NewRegistry creates an empty registry. logger may be nil.
func NewRegistry(logger *otel.Logger) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		failures:  make(map[string]FetchFailure),
		logger:    logger,
	}
}

// Register adds p. Re-registering an existing id replaces the instance but
// keeps its original position.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := p.ID()
	if _, ok := r.providers[id]; !ok {
		r.order = append(r.order, id)
	}
	r.providers[id] = p
}

// Remove drops a provider. Reports whether it was registered.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[id]; !ok {
		return false
	}
	delete(r.providers, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the provider registered under id.
func (r *Registry) Get(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// All returns every provider in registration order.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.providers[id])
	}
	return out
}

// Ready returns the providers whose status is Ready, in registration order.
func (r *Registry) Ready() []Provider {
	var out []Provider
	for _, p := range r.All() {
		if p.Status().IsReady() {
			out = append(out, p)
		}
	}
	return out
}

// IDs returns registered ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// FetchAll fetches up to limit items from every ready provider concurrently.
//
// A failing provider contributes no items; its error is recorded (see
// LastErrors) and never returned. The merged result is sorted newest first.
// Items with equal timestamps keep registration order, then the provider's
// own order.
func (r *Registry) FetchAll(ctx context.Context, limit int) []model.FeedItem {
	providers := r.Ready()
	results := make([][]model.FeedItem, len(providers))

	var g errgroup.Group
	for i, p := range providers {
		g.Go(func() error {
			items, err := r.fetchOne(ctx, p, limit)
			if err != nil {
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	var merged []model.FeedItem
	for _, items := range results {
		merged = append(merged, items...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PublishedAt.After(merged[j].PublishedAt)
	})
	return merged
}

func (r *Registry) fetchOne(ctx context.Context, p Provider, limit int) ([]model.FeedItem, error) {
	id := p.ID()
	start := time.Now()
	r.logger.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindFetchStart, Comp: "feeds", Source: id})

	items, err := p.FetchItems(ctx, limit)
	if err != nil {
		err = WithProvider(id, err)
		r.recordFailure(id, err)
		logging.Warn("Provider fetch failed", "provider", id, "kind", KindOf(err), "error", err)
		r.logger.Emit(otel.Event{
			Level:  otel.LevelError,
			Kind:   otel.KindFetchError,
			Comp:   "feeds",
			Source: id,
			Err:    err.Error(),
			Dur:    time.Since(start),
		})
		return nil, err
	}
	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}

	r.clearFailure(id)
	r.logger.Emit(otel.Event{
		Level:  otel.LevelInfo,
		Kind:   otel.KindFetchComplete,
		Comp:   "feeds",
		Source: id,
		Count:  len(items),
		Dur:    time.Since(start),
	})
	return items, nil
}

// FetchFrom fetches from exactly one provider. Unlike FetchAll, the
// provider's error is returned to the caller.
func (r *Registry) FetchFrom(ctx context.Context, id string, limit int) ([]model.FeedItem, error) {
	p, ok := r.Get(id)
	if !ok {
		return nil, Errorf(KindNotConfigured, id, "unknown provider")
	}
	items, err := p.FetchItems(ctx, limit)
	if err != nil {
		return nil, WithProvider(id, err)
	}
	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// FetchFromOffset fetches the next page of one provider.
func (r *Registry) FetchFromOffset(ctx context.Context, id string, offset, limit int) ([]model.FeedItem, error) {
	p, ok := r.Get(id)
	if !ok {
		return nil, Errorf(KindNotConfigured, id, "unknown provider")
	}
	if !p.SupportsOffset() {
		return nil, Errorf(KindOther, id, "pagination not supported")
	}
	items, err := p.FetchItemsWithOffset(ctx, offset, limit)
	if err != nil {
		return nil, WithProvider(id, err)
	}
	return items, nil
}

// Search runs query against one provider.
func (r *Registry) Search(ctx context.Context, id, query string, limit int) ([]model.FeedItem, error) {
	p, ok := r.Get(id)
	if !ok {
		return nil, Errorf(KindNotConfigured, id, "unknown provider")
	}
	if !p.SupportsSearch() {
		return nil, Errorf(KindOther, id, "search not supported")
	}
	items, err := p.Search(ctx, query, limit)
	if err != nil {
		return nil, WithProvider(id, err)
	}
	return items, nil
}

// LastErrors returns the failures recorded by the most recent FetchAll calls,
// in registration order. A provider's entry clears on its next success.
func (r *Registry) LastErrors() []FetchFailure {
	ids := r.IDs()

	r.errMu.Lock()
	defer r.errMu.Unlock()

	var out []FetchFailure
	for _, id := range ids {
		if f, ok := r.failures[id]; ok {
			out = append(out, f)
		}
	}
	return out
}

func (r *Registry) recordFailure(id string, err error) {
	r.errMu.Lock()
	r.failures[id] = FetchFailure{ProviderID: id, Err: err, At: time.Now()}
	r.errMu.Unlock()
}

func (r *Registry) clearFailure(id string) {
	r.errMu.Lock()
	delete(r.failures, id)
	r.errMu.Unlock()
}

// StatusSummary lists every provider with its current status.
func (r *Registry) StatusSummary() []ProviderInfo {
	all := r.All()
	out := make([]ProviderInfo, 0, len(all))
	for _, p := range all {
		out = append(out, ProviderInfo{
			ID:          p.ID(),
			Name:        p.Name(),
			Description: p.Description(),
			Status:      p.Status(),
			Offset:      p.SupportsOffset(),
			Search:      p.SupportsSearch(),
		})
	}
	return out
}
