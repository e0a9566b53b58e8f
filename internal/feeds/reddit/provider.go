// Package reddit reads subreddit listings from Reddit's public Atom feeds and
// comment trees from the JSON API.
package reddit

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/feedterm/internal/feeds"
	"github.com/abelbrown/feedterm/internal/fetch"
	"github.com/abelbrown/feedterm/internal/logging"
	"github.com/abelbrown/feedterm/internal/model"
)

const (
	ID = "reddit"

	DefaultBaseURL = "https://www.reddit.com"

	// minPerSubreddit is the smallest share each subreddit gets of a fetch.
	minPerSubreddit = 10
)

// DefaultSubreddits is used when none are configured.
var DefaultSubreddits = []string{"technology", "programming", "rust"}

// Sort is a subreddit listing order.
type Sort int

const (
	Hot Sort = iota
	SortNew
	Top
	Rising
)

// ParseSort maps a name to a Sort. Unknown names are Hot.
func ParseSort(s string) Sort {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "new":
		return SortNew
	case "top":
		return Top
	case "rising":
		return Rising
	default:
		return Hot
	}
}

// path is the suffix after /r/<sub> ("" for hot).
func (s Sort) path() string {
	switch s {
	case SortNew:
		return "/new"
	case Top:
		return "/top"
	case Rising:
		return "/rising"
	default:
		return ""
	}
}

func (s Sort) String() string {
	switch s {
	case SortNew:
		return "New"
	case Top:
		return "Top"
	case Rising:
		return "Rising"
	default:
		return "Hot"
	}
}

// Options configures a Provider.
type Options struct {
	Subreddits []string
	Sort       string
	Disabled   bool
	BaseURL    string
	HTTP       fetch.Options
}

// Provider is the Reddit source. It has no pagination or search.
type Provider struct {
	feeds.Unsupported

	client     *fetch.Client
	baseURL    string
	subreddits []string
	sort       Sort
	disabled   bool
}

// New creates a Reddit provider.
func New(opts Options) *Provider {
	subs := make([]string, 0, len(opts.Subreddits))
	for _, s := range opts.Subreddits {
		s = strings.TrimPrefix(strings.TrimSpace(s), "r/")
		if s != "" {
			subs = append(subs, s)
		}
	}
	if len(subs) == 0 {
		subs = append(subs, DefaultSubreddits...)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	return &Provider{
		Unsupported: feeds.Unsupported{ProviderID: ID},
		client:      fetch.New(ID, opts.HTTP),
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		subreddits:  subs,
		sort:        ParseSort(opts.Sort),
		disabled:    opts.Disabled,
	}
}

func (p *Provider) ID() string          { return ID }
func (p *Provider) Name() string        { return "Reddit" }
func (p *Provider) Description() string { return "Posts from Reddit subreddits" }

func (p *Provider) Status() feeds.Status {
	if p.disabled {
		return feeds.Disabled
	}
	return feeds.Ready
}

// Categories lists the configured subreddits.
func (p *Provider) Categories() []feeds.Category {
	out := make([]feeds.Category, 0, len(p.subreddits))
	for _, s := range p.subreddits {
		out = append(out, feeds.Category{ID: s, Name: "r/" + s})
	}
	return out
}

// Subreddits returns the configured subreddit names.
func (p *Provider) Subreddits() []string {
	return append([]string(nil), p.subreddits...)
}

// FeedURL is the Atom listing URL for a subreddit.
func (p *Provider) FeedURL(subreddit string) string {
	return fmt.Sprintf("%s/r/%s%s.rss", p.baseURL, url.PathEscape(subreddit), p.sort.path())
}

// FetchItems fetches every subreddit in parallel, giving each a share of
// max(limit/len(subreddits), 10), and returns the newest limit posts.
// Failed subreddits are skipped; the call fails only if all of them do.
func (p *Provider) FetchItems(ctx context.Context, limit int) ([]model.FeedItem, error) {
	share := max(limit/len(p.subreddits), minPerSubreddit)

	results := make([][]model.FeedItem, len(p.subreddits))
	errs := make([]error, len(p.subreddits))

	var g errgroup.Group
	for i, sub := range p.subreddits {
		g.Go(func() error {
			results[i], errs[i] = p.fetchSubreddit(ctx, sub, share)
			if errs[i] != nil {
				logging.Warn("subreddit fetch failed", "subreddit", sub, "error", errs[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	var all []model.FeedItem
	failed := 0
	for i := range results {
		if errs[i] != nil {
			failed++
			continue
		}
		all = append(all, results[i]...)
	}
	if failed == len(p.subreddits) {
		return nil, errs[0]
	}

	model.SortNewestFirst(all)
	if limit >= 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (p *Provider) fetchSubreddit(ctx context.Context, sub string, limit int) ([]model.FeedItem, error) {
	feed, err := p.client.GetFeed(ctx, p.FeedURL(sub))
	if err != nil {
		return nil, err
	}

	items := make([]model.FeedItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if fi, ok := toFeedItem(entry, sub); ok {
			items = append(items, fi)
		}
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

var (
	pointsRe   = regexp.MustCompile(`(?i)([\d,]+)\s+points?\b`)
	commentsRe = regexp.MustCompile(`(?i)([\d,]+)\s+comments?\b`)
)

func toFeedItem(entry *gofeed.Item, sub string) (model.FeedItem, bool) {
	title := strings.TrimSpace(entry.Title)
	if title == "" {
		return model.FeedItem{}, false
	}

	var published time.Time
	switch {
	case entry.PublishedParsed != nil:
		published = *entry.PublishedParsed
	case entry.UpdatedParsed != nil:
		published = *entry.UpdatedParsed
	}

	id := entry.GUID
	if id == "" {
		id = entry.Link
	}

	source := "r/" + sub
	fi := model.NewFeedItem(id, ID, title, source, published)
	fi.URL = entry.Link
	if entry.Author != nil {
		fi.Author = strings.TrimPrefix(entry.Author.Name, "/u/")
	}

	content := entry.Content
	if content == "" {
		content = entry.Description
	}
	if content != "" {
		text := fetch.PlainText(content)
		fi.Summary = strings.ReplaceAll(fetch.FirstLines(text, 3), "\n", " ")
		fi.Metadata.Score = extractCount(pointsRe, text)
		fi.Metadata.Comments = extractCount(commentsRe, text)
		fi.Metadata.ImageURL = firstImage(content)
	}

	fi.Metadata.Tags = []string{source}
	fi.Metadata.Subreddit = sub
	fi.Metadata.RedditID = PostID(entry.Link, entry.GUID)
	return fi, true
}

func extractCount(re *regexp.Regexp, text string) *int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return nil
	}
	return &n
}

func firstImage(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return src
}

// PostID extracts the base-36 post id from a permalink
// (".../comments/<id>/..."), falling back to the Atom id with its "t3_"
// prefix removed.
func PostID(link, guid string) string {
	for _, s := range []string{link, guid} {
		if _, rest, ok := strings.Cut(s, "/comments/"); ok {
			id, _, _ := strings.Cut(rest, "/")
			if id != "" {
				return id
			}
		}
	}
	return strings.TrimPrefix(guid, "t3_")
}
