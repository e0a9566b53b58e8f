package preview

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/abelbrown/feedterm/internal/fetch"
)

func page(head, body string) []byte {
	return []byte("<!doctype html><html><head>" + head + "</head><body>" + body + "</body></html>")
}

func TestParseOpenGraph(t *testing.T) {
	body := `<p>short</p><p>This first real paragraph is long enough &amp; should be the snippet.</p>` +
		"<p>" + strings.Repeat("word ", 450) + "</p><script>var ignored = 1;</script>"
	html := page(`
		<title>Fallback Title</title>
		<meta property="og:title" content="Tom &amp; Jerry">
		<meta property="og:description" content="A classic.">
		<meta property="og:image" content="/img/cover.png">
		<meta property="og:site_name" content="Cartoons">
		<meta property="og:type" content="article">
		<link rel="shortcut icon" href="/favicon.ico">`, body)

	p, err := Parse(html, "https://example.com/posts/1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Title != "Tom & Jerry" || p.Description != "A classic." {
		t.Errorf("title/description = %q/%q", p.Title, p.Description)
	}
	if p.ImageURL != "https://example.com/img/cover.png" {
		t.Errorf("image = %q", p.ImageURL)
	}
	if p.FaviconURL != "https://example.com/favicon.ico" {
		t.Errorf("favicon = %q", p.FaviconURL)
	}
	if p.SiteName != "Cartoons" || p.ContentType != "article" {
		t.Errorf("site/type = %q/%q", p.SiteName, p.ContentType)
	}
	if p.ContentSnippet != "This first real paragraph is long enough & should be the snippet." {
		t.Errorf("snippet = %q", p.ContentSnippet)
	}
	// ~462 words -> 2 minutes.
	if p.ReadingTime != 2 {
		t.Errorf("reading time = %d", p.ReadingTime)
	}
}

func TestParseFallbacks(t *testing.T) {
	html := page(`<title> Plain Title </title><meta name="description" content="Meta description">`,
		`<p>`+strings.Repeat("x ", 150)+`</p>`)
	p, err := Parse(html, "https://example.com")
	if err != nil {
		t.Fatal(err)
	}
	if p.Title != "Plain Title" || p.Description != "Meta description" {
		t.Errorf("fallbacks = %q/%q", p.Title, p.Description)
	}
	if p.ReadingTime != 1 {
		t.Errorf("reading time should floor to 1, got %d", p.ReadingTime)
	}
	if len([]rune(p.ContentSnippet)) != 299 {
		// 150 "x" joined by spaces is 299 runes, under the cap.
		t.Errorf("snippet length = %d", len([]rune(p.ContentSnippet)))
	}

	short := page(`<title>T</title>`, `<p>a few words</p>`)
	p, err = Parse(short, "")
	if err != nil {
		t.Fatal(err)
	}
	if p.ReadingTime != 0 || p.ContentSnippet != "" {
		t.Errorf("short page: reading=%d snippet=%q", p.ReadingTime, p.ContentSnippet)
	}
}

func TestSnippetCapped(t *testing.T) {
	html := page(`<title>T</title>`, `<p>`+strings.Repeat("abcdefghij", 50)+`</p>`)
	p, err := Parse(html, "")
	if err != nil {
		t.Fatal(err)
	}
	if n := len([]rune(p.ContentSnippet)); n != maxSnippetLen {
		t.Errorf("snippet length = %d, want %d", n, maxSnippetLen)
	}
}

func TestNoPreview(t *testing.T) {
	_, err := Parse(page(``, `<div>nothing</div>`), "https://example.com")
	if !errors.Is(err, ErrNoPreview) {
		t.Errorf("expected ErrNoPreview, got %v", err)
	}
}

func TestFetch(t *testing.T) {
	var ua string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		fmt.Fprint(w, string(page(`<meta property="og:title" content="Served">`, ``)))
	}))
	defer server.Close()

	p, err := New(fetch.Options{}).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if p.Title != "Served" {
		t.Errorf("title = %q", p.Title)
	}
	if ua != DefaultUserAgent {
		t.Errorf("User-Agent = %q", ua)
	}
}
