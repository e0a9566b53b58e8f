package reddit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/abelbrown/feedterm/internal/feeds"
	"github.com/abelbrown/feedterm/internal/model"
)

func atomFeed(sub string, entries ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
<title>` + sub + `</title>
` + strings.Join(entries, "\n") + `
</feed>`
}

func atomEntry(sub, id, title, updated, content string) string {
	return fmt.Sprintf(`<entry>
<author><name>/u/alice</name><uri>https://www.reddit.com/user/alice</uri></author>
<content type="html">%s</content>
<id>t3_%s</id>
<link href="https://www.reddit.com/r/%s/comments/%s/some_slug/"/>
<updated>%s</updated>
<published>%s</published>
<title>%s</title>
</entry>`, content, id, sub, id, updated, updated, title)
}

func TestFetchItemsMergesSubreddits(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/atom+xml")
		switch r.URL.Path {
		case "/r/rust/new.rss":
			fmt.Fprint(w, atomFeed("rust",
				atomEntry("rust", "aaa", "Rust older", "2024-01-01T10:00:00+00:00",
					`&lt;p&gt;submitted with 150 points and 42 comments&lt;/p&gt;&lt;img src=&quot;https://i.redd.it/x.png&quot;/&gt;`),
				atomEntry("rust", "bbb", "Rust newest", "2024-01-01T12:00:00+00:00", ""),
			))
		case "/r/golang/new.rss":
			fmt.Fprint(w, atomFeed("golang",
				atomEntry("golang", "ccc", "Go middle", "2024-01-01T11:00:00+00:00", ""),
			))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	p := New(Options{Subreddits: []string{"rust", "r/golang"}, Sort: "new", BaseURL: server.URL})
	items, err := p.FetchItems(context.Background(), 10)
	if err != nil {
		t.Fatalf("FetchItems: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d (paths %v)", len(items), paths)
	}

	titles := []string{items[0].Title, items[1].Title, items[2].Title}
	if want := []string{"Rust newest", "Go middle", "Rust older"}; strings.Join(titles, "|") != strings.Join(want, "|") {
		t.Errorf("order = %v, want %v", titles, want)
	}

	older := items[2]
	if older.Source != "r/rust" || older.ProviderID != ID {
		t.Errorf("source/provider = %q/%q", older.Source, older.ProviderID)
	}
	if older.Author != "alice" {
		t.Errorf("author = %q", older.Author)
	}
	if older.Metadata.Score == nil || *older.Metadata.Score != 150 {
		t.Errorf("score = %v", older.Metadata.Score)
	}
	if older.Metadata.Comments == nil || *older.Metadata.Comments != 42 {
		t.Errorf("comments = %v", older.Metadata.Comments)
	}
	if older.Metadata.Subreddit != "rust" || older.Metadata.RedditID != "aaa" {
		t.Errorf("back-references = %q/%q", older.Metadata.Subreddit, older.Metadata.RedditID)
	}
	if older.Metadata.ImageURL != "https://i.redd.it/x.png" {
		t.Errorf("image = %q", older.Metadata.ImageURL)
	}
	if len(older.Metadata.Tags) != 1 || older.Metadata.Tags[0] != "r/rust" {
		t.Errorf("tags = %v", older.Metadata.Tags)
	}
	if items[1].Metadata.Score != nil {
		t.Error("score should be absent when the content has none")
	}
}

func TestFetchItemsPartialAndTotalFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/r/ok.rss" {
			fmt.Fprint(w, atomFeed("ok", atomEntry("ok", "x1", "Fine", "2024-01-01T10:00:00Z", "")))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	p := New(Options{Subreddits: []string{"ok", "private"}, BaseURL: server.URL})
	items, err := p.FetchItems(context.Background(), 5)
	if err != nil {
		t.Fatalf("one healthy subreddit should be enough: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("expected 1 item, got %d", len(items))
	}

	p = New(Options{Subreddits: []string{"private"}, BaseURL: server.URL})
	if _, err := p.FetchItems(context.Background(), 5); !errors.Is(err, feeds.ErrAuth) {
		t.Errorf("expected auth error when every subreddit fails, got %v", err)
	}
}

func TestPerSubredditShare(t *testing.T) {
	var entries []string
	for i := 0; i < 30; i++ {
		entries = append(entries, atomEntry("big", fmt.Sprintf("p%02d", i), fmt.Sprintf("Post %d", i),
			fmt.Sprintf("2024-01-01T10:%02d:00Z", 59-i), ""))
	}
	body := atomFeed("big", entries...)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	// Two subreddits and limit 4: each gets max(4/2, 10) = 10, then the
	// merged list is cut to 4.
	p := New(Options{Subreddits: []string{"a", "b"}, BaseURL: server.URL})
	items, err := p.FetchItems(context.Background(), 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(items))
	}

	items, err = p.FetchItems(context.Background(), 100)
	if err != nil {
		t.Fatal(err)
	}
	// share = 50, but each feed only has 30 entries.
	if len(items) != 60 {
		t.Errorf("expected 60 items, got %d", len(items))
	}
}

func TestFeedURLAndSort(t *testing.T) {
	p := New(Options{Subreddits: []string{"rust"}, Sort: "new"})
	if got := p.FeedURL("rust"); got != "https://www.reddit.com/r/rust/new.rss" {
		t.Errorf("FeedURL = %q", got)
	}
	p = New(Options{})
	if got := p.FeedURL("rust"); got != "https://www.reddit.com/r/rust.rss" {
		t.Errorf("hot FeedURL = %q", got)
	}
	if len(p.Subreddits()) != len(DefaultSubreddits) {
		t.Errorf("default subreddits = %v", p.Subreddits())
	}

	for in, want := range map[string]Sort{"hot": Hot, "new": SortNew, "TOP": Top, "rising": Rising, "weird": Hot} {
		if got := ParseSort(in); got != want {
			t.Errorf("ParseSort(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestPostID(t *testing.T) {
	tests := []struct{ link, guid, want string }{
		{"https://www.reddit.com/r/rust/comments/abc123/title/", "t3_abc123", "abc123"},
		{"", "https://www.reddit.com/r/rust/comments/zz9/x", "zz9"},
		{"https://example.com/elsewhere", "t3_q1w2", "q1w2"},
	}
	for _, tt := range tests {
		if got := PostID(tt.link, tt.guid); got != tt.want {
			t.Errorf("PostID(%q, %q) = %q, want %q", tt.link, tt.guid, got, tt.want)
		}
	}
}

const commentsJSON = `[
 {"kind":"Listing","data":{"children":[{"kind":"t3","data":{"id":"abc"}}]}},
 {"kind":"Listing","data":{"children":[
  {"kind":"t1","data":{"id":"c1","author":"bob","body":"top level","body_html":"<div class=\"md\"><p>top <b>level</b></p></div>","score":12,"created_utc":1700000000.0,
   "replies":{"kind":"Listing","data":{"children":[
     {"kind":"t1","data":{"id":"c2","author":"carol","body":"reply","score":3,"created_utc":1700000100.0,
      "replies":{"kind":"Listing","data":{"children":[
        {"kind":"t1","data":{"id":"c3","author":"dave","body":"too deep","created_utc":1700000200.0,"replies":""}}
      ]}}}},
     {"kind":"more","data":{"count":5,"children":["x","y"]}}
   ]}}}},
  {"kind":"t1","data":{"id":"c4","author":"erin","body":"no replies","created_utc":1700000300.0,"replies":""}}
 ]}}
]`

func TestFetchComments(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, commentsJSON)
	}))
	defer server.Close()

	p := New(Options{BaseURL: server.URL})
	thread, err := p.FetchComments(context.Background(), "rust", "abc", 1)
	if err != nil {
		t.Fatalf("FetchComments: %v", err)
	}
	if gotPath != "/r/rust/comments/abc.json" {
		t.Errorf("path = %q", gotPath)
	}
	if len(thread) != 2 {
		t.Fatalf("expected 2 top-level comments, got %d", len(thread))
	}

	top := thread[0]
	if top.ID != "c1" || top.Author != "bob" || top.Depth != 0 {
		t.Errorf("unexpected top comment %+v", top)
	}
	if top.Score == nil || *top.Score != 12 {
		t.Errorf("score = %v", top.Score)
	}
	if top.TextPlain != "top level" {
		t.Errorf("TextPlain = %q", top.TextPlain)
	}
	if len(top.Replies) != 1 {
		t.Fatalf("expected the more stub to be skipped, got %d replies", len(top.Replies))
	}
	reply := top.Replies[0]
	if reply.Depth != 1 || len(reply.Replies) != 0 {
		t.Errorf("depth 1 node should have no children at maxDepth 1: %+v", reply)
	}
	if got := model.CountThread(thread); got != 3 {
		t.Errorf("CountThread = %d, want 3", got)
	}
}

func TestFetchCommentsBadShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"kind":"Listing","data":{}}]`)
	}))
	defer server.Close()

	p := New(Options{BaseURL: server.URL})
	if _, err := p.FetchComments(context.Background(), "rust", "abc", 3); !errors.Is(err, feeds.ErrParse) {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestCapabilities(t *testing.T) {
	var p feeds.Provider = New(Options{})
	if p.SupportsOffset() || p.SupportsSearch() {
		t.Error("reddit has no offset or search")
	}
	if _, err := p.Search(context.Background(), "x", 5); err == nil {
		t.Error("Search should fail")
	}
	if got := len(p.Categories()); got != len(DefaultSubreddits) {
		t.Errorf("categories = %d", got)
	}
}
