package cratesio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/abelbrown/feedterm/internal/feeds"
	"github.com/abelbrown/feedterm/internal/model"
)

// registry serves n crates named crate-000.. in listing order.
type registry struct {
	n int

	mu      sync.Mutex
	queries []string
}

func (r *registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	r.queries = append(r.queries, req.URL.RawQuery)
	r.mu.Unlock()

	q := req.URL.Query()
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	page, _ := strconv.Atoi(q.Get("page"))
	if page == 0 {
		page = 1
	}

	var out []map[string]any
	if term := q.Get("q"); term != "" {
		out = append(out, map[string]any{
			"id": term, "name": term, "description": "matched " + term, "downloads": 7,
			"newest_version": "1.0.0", "updated_at": "2024-03-01T00:00:00Z",
		})
	} else {
		start := (page - 1) * perPage
		for i := start; i < start+perPage && i < r.n; i++ {
			name := fmt.Sprintf("crate-%03d", i)
			out = append(out, map[string]any{
				"id": name, "name": name, "description": "  desc  ", "downloads": 1000 - i,
				"newest_version": "0.1." + strconv.Itoa(i), "max_version": "0.1." + strconv.Itoa(i),
				"updated_at": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(-time.Duration(i) * time.Hour),
			})
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"crates": out})
}

func newTestProvider(t *testing.T, n int, category string) (*Provider, *registry) {
	t.Helper()
	reg := &registry{n: n}
	server := httptest.NewServer(reg)
	t.Cleanup(server.Close)
	return New(Options{BaseURL: server.URL, Category: category}), reg
}

func TestFetchItems(t *testing.T) {
	p, reg := newTestProvider(t, 50, "downloaded")
	items, err := p.FetchItems(context.Background(), 5)
	if err != nil {
		t.Fatalf("FetchItems: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(items))
	}
	first := items[0]
	if first.ID != "crate-000" || first.Title != "crate-000 v0.1.0" || first.Source != "Popular Crates" {
		t.Errorf("unexpected item %+v", first)
	}
	if first.URL != "https://crates.io/crates/crate-000" || first.Summary != "desc" {
		t.Errorf("url/summary = %q/%q", first.URL, first.Summary)
	}
	if first.Metadata.Score == nil || *first.Metadata.Score != 1000 {
		t.Errorf("score = %v", first.Metadata.Score)
	}
	if reg.queries[0] != "sort=downloads&per_page=5&page=1" {
		t.Errorf("query = %q", reg.queries[0])
	}
}

func TestOffsetAlignedAndUnaligned(t *testing.T) {
	p, reg := newTestProvider(t, 50, "")
	ctx := context.Background()

	items, err := p.FetchItemsWithOffset(ctx, 20, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 10 || items[0].ID != "crate-020" || items[9].ID != "crate-029" {
		t.Fatalf("aligned page wrong: %v", ids(items))
	}
	if len(reg.queries) != 1 || reg.queries[0] != "sort=new&per_page=10&page=3" {
		t.Errorf("queries = %v", reg.queries)
	}

	items, err = p.FetchItemsWithOffset(ctx, 5, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 10 || items[0].ID != "crate-005" || items[9].ID != "crate-014" {
		t.Fatalf("unaligned page wrong: %v", ids(items))
	}

	items, err = p.FetchItemsWithOffset(ctx, 45, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 5 || items[4].ID != "crate-049" {
		t.Errorf("tail page wrong: %v", ids(items))
	}

	items, err = p.FetchItemsWithOffset(ctx, 500, 10)
	if err != nil || len(items) != 0 {
		t.Errorf("past the end: %v, %d items", err, len(items))
	}
}

func TestPerPageCapped(t *testing.T) {
	p, reg := newTestProvider(t, 300, "")
	items, err := p.FetchItems(context.Background(), 250)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 100 {
		t.Errorf("expected one page of 100, got %d", len(items))
	}
	if reg.queries[0] != "sort=new&per_page=100&page=1" {
		t.Errorf("query = %q", reg.queries[0])
	}
}

func TestSearch(t *testing.T) {
	p, reg := newTestProvider(t, 0, "")
	items, err := p.Search(context.Background(), "serde json", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Title != "serde json v1.0.0" || items[0].Source != "Crates.io" {
		t.Fatalf("unexpected results %+v", items)
	}
	if reg.queries[0] != "q=serde+json&per_page=5" {
		t.Errorf("query = %q", reg.queries[0])
	}
}

func TestCategories(t *testing.T) {
	for in, want := range map[string]Category{
		"new": CategoryNew, "updated": JustUpdated, "just_updated": JustUpdated,
		"downloaded": MostDownloaded, "recent": RecentlyDownloaded, "?": CategoryNew,
	} {
		if got := ParseCategory(in); got != want {
			t.Errorf("ParseCategory(%q) = %v, want %v", in, got, want)
		}
	}

	p := New(Options{})
	p.SetCategory(RecentlyDownloaded)
	if p.Category() != RecentlyDownloaded {
		t.Error("SetCategory ignored")
	}
	var fp feeds.Provider = p
	if len(fp.Categories()) != 4 || !fp.SupportsOffset() || !fp.SupportsSearch() {
		t.Error("unexpected capabilities")
	}
}

func ids(items []model.FeedItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
