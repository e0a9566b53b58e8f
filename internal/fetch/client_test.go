package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/abelbrown/feedterm/internal/feeds"
)

func TestGetJSON(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 7, "title": "hello"}`))
	}))
	defer server.Close()

	c := New("test", Options{UserAgent: "feedterm-test"})
	var v struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	}
	if err := c.GetJSON(context.Background(), server.URL, &v); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if v.ID != 7 || v.Title != "hello" {
		t.Errorf("unexpected decode %+v", v)
	}
	if gotUA != "feedterm-test" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, feeds.ErrAuth},
		{http.StatusForbidden, feeds.ErrAuth},
		{http.StatusTooManyRequests, feeds.ErrRateLimit},
		{http.StatusNotFound, feeds.ErrNetwork},
		{http.StatusBadGateway, feeds.ErrNetwork},
	}

	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		c := New("test", Options{})
		_, err := c.Get(context.Background(), server.URL)
		server.Close()

		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: got %v, want kind %v", tt.status, err, tt.want)
		}
	}
}

func TestGetJSONParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	var v map[string]any
	err := New("test", Options{}).GetJSON(context.Background(), server.URL, &v)
	if !errors.Is(err, feeds.ErrParse) {
		t.Errorf("got %v, want parse error", err)
	}
}

func TestTimeoutIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	c := New("slow", Options{Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := c.Get(context.Background(), server.URL)
	if !errors.Is(err, feeds.ErrNetwork) {
		t.Errorf("got %v, want network error", err)
	}
	if time.Since(start) > time.Second {
		t.Error("request was not bounded by the timeout")
	}
}

func TestTimeoutAppliesPerAttempt(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	c := New("slow", Options{Timeout: 50 * time.Millisecond, Backoffs: []time.Duration{time.Millisecond, time.Millisecond}})
	if _, err := c.Get(context.Background(), server.URL); !errors.Is(err, feeds.ErrNetwork) {
		t.Fatalf("got %v, want network error", err)
	}
	if calls.Load() != 3 {
		t.Errorf("each attempt gets its own timeout; got %d attempts, want 3", calls.Load())
	}

	calls.Store(0)
	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	c = New("slow", Options{Timeout: time.Second, Backoffs: []time.Duration{time.Millisecond, time.Millisecond}})
	start := time.Now()
	if _, err := c.Get(ctx, server.URL); err == nil {
		t.Fatal("expected error")
	}
	if time.Since(start) > time.Second || calls.Load() != 1 {
		t.Errorf("ctx should bound the whole call: %v, %d attempts", time.Since(start), calls.Load())
	}
}

func TestConnectionRefusedIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := New("gone", Options{ConnectTimeout: 100 * time.Millisecond}).Get(context.Background(), url)
	if !errors.Is(err, feeds.ErrNetwork) {
		t.Errorf("got %v, want network error", err)
	}
}

func TestRetryOn5xx(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := New("test", Options{Backoffs: []time.Duration{time.Millisecond, time.Millisecond}})
	body, err := c.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(body) != "ok" || calls.Load() != 3 {
		t.Errorf("body=%q calls=%d", body, calls.Load())
	}
}

func TestNoRetryOn4xx(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := New("test", Options{Backoffs: []time.Duration{time.Millisecond}})
	if _, err := c.Get(context.Background(), server.URL); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestRateLimiterHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := New("test", Options{Rate: rate.Every(time.Hour), Burst: 1})
	if _, err := c.Get(context.Background(), server.URL); err != nil {
		t.Fatalf("first Get failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Get(ctx, server.URL); !errors.Is(err, feeds.ErrNetwork) {
		t.Errorf("second Get = %v, want network error from limiter", err)
	}
}

func TestGetFeed(t *testing.T) {
	rss := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <item>
      <title>Article 1</title>
      <link>http://example.com/article1</link>
      <pubDate>Mon, 01 Jan 2024 12:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rss))
	}))
	defer server.Close()

	feed, err := New("rss", Options{}).GetFeed(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}
	if len(feed.Items) != 1 || feed.Items[0].Title != "Article 1" {
		t.Errorf("unexpected feed %+v", feed.Items)
	}
}

func TestGetFeedInvalidXML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not valid xml"))
	}))
	defer server.Close()

	_, err := New("rss", Options{}).GetFeed(context.Background(), server.URL)
	if !errors.Is(err, feeds.ErrParse) {
		t.Errorf("got %v, want parse error", err)
	}
	if !strings.Contains(err.Error(), "rss") {
		t.Errorf("error %q should name the provider", err)
	}
}
