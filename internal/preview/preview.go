// Package preview builds link previews from a page's Open Graph and HTML
// metadata.
package preview

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/abelbrown/feedterm/internal/fetch"
	"github.com/abelbrown/feedterm/internal/model"
)

const (
	DefaultTimeout   = 5 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (compatible; feedterm/0.1)"

	wordsPerMinute = 200
	// minReadingWords is the page length below which no reading time is given.
	minReadingWords = 100
	minSnippetLen   = 20
	maxSnippetLen   = 300
)

// ErrNoPreview is returned when a page has neither a title nor a description.
var ErrNoPreview = errors.New("preview: page has no title or description")

// Fetcher downloads pages and extracts previews.
type Fetcher struct {
	client *fetch.Client
}

// New creates a Fetcher. Zero options use a 5s timeout and a browser-like
// User-Agent, since many sites refuse unknown agents.
func New(opts fetch.Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &Fetcher{client: fetch.New("preview", opts)}
}

// Fetch downloads pageURL and parses it.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*model.LinkPreview, error) {
	body, err := f.client.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return Parse(body, pageURL)
}

// Parse extracts a preview from an HTML document. Relative image and icon
// URLs are resolved against pageURL.
func Parse(html []byte, pageURL string) (*model.LinkPreview, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(pageURL)

	p := &model.LinkPreview{
		Title:       firstNonEmpty(meta(doc, "og:title"), strings.TrimSpace(doc.Find("title").First().Text())),
		Description: firstNonEmpty(meta(doc, "og:description"), meta(doc, "description")),
		ImageURL:    resolve(base, meta(doc, "og:image")),
		SiteName:    meta(doc, "og:site_name"),
		ContentType: meta(doc, "og:type"),
	}
	if p.Title == "" && p.Description == "" {
		return nil, ErrNoPreview
	}

	if icon, ok := doc.Find(`link[rel~="icon"]`).First().Attr("href"); ok {
		p.FaviconURL = resolve(base, icon)
	}

	doc.Find("script, style, noscript").Remove()
	if words := len(strings.Fields(doc.Find("body").Text())); words > minReadingWords {
		p.ReadingTime = max(words/wordsPerMinute, 1)
	}
	p.ContentSnippet = firstParagraph(doc)
	return p, nil
}

// meta returns the content of <meta property=name> or <meta name=name>.
func meta(doc *goquery.Document, name string) string {
	for _, attr := range []string{"property", "name"} {
		sel := doc.Find(`meta[` + attr + `="` + name + `"]`).First()
		if v, ok := sel.Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

func firstParagraph(doc *goquery.Document) string {
	var snippet string
	doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := fetch.CollapseSpace(s.Text())
		if len(text) > minSnippetLen {
			snippet = truncateRunes(text, maxSnippetLen)
			return false
		}
		return true
	})
	return snippet
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func resolve(base *url.URL, ref string) string {
	if ref == "" || base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
