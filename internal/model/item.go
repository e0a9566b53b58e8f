// Package model defines the unified item model every provider normalizes into.
//
// Values here are plain data: providers construct them, the registry merges and
// orders them, the cache serializes them. No type in this package performs I/O.
package model

import (
	"fmt"
	"sort"
	"time"
)

// FeedItem is one normalized content entry.
//
// ID is provider-local; (ProviderID, ID) is the global identity callers can
// deduplicate on. PublishedAt is always a valid instant: constructors fill in
// the fetch time when a source does not supply one.
type FeedItem struct {
	ID          string    `json:"id"`
	ProviderID  string    `json:"provider_id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	Content     string    `json:"content,omitempty"`
	URL         string    `json:"url,omitempty"`
	Author      string    `json:"author,omitempty"`
	Source      string    `json:"source"` // "r/golang", "Show HN", "arXiv:AI"
	PublishedAt time.Time `json:"published_at"`
	Metadata    Metadata  `json:"metadata"`
}

// Metadata is the extensible bag carried by every FeedItem.
// Pointer fields distinguish "unknown" from zero.
type Metadata struct {
	Score       *int         `json:"score,omitempty"`
	Comments    *int         `json:"comments,omitempty"`
	Sentiment   *Sentiment   `json:"sentiment,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	ImageURL    string       `json:"image_url,omitempty"`
	LinkPreview *LinkPreview `json:"link_preview,omitempty"`
	UpvoteRatio *float64     `json:"upvote_ratio,omitempty"`

	// Back-references needed to fetch a discussion thread later.
	HNID      int64  `json:"hn_id,omitempty"`
	Subreddit string `json:"subreddit,omitempty"`
	RedditID  string `json:"reddit_id,omitempty"`

	// Thread loaded on demand.
	Thread []Comment `json:"thread,omitempty"`
}

// SentimentLabel is the coarse polarity of a Sentiment.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// Sentiment holds a score in [-1, 1] and a confidence in [0, 1].
type Sentiment struct {
	Score      float64        `json:"score"`
	Label      SentimentLabel `json:"label"`
	Confidence float64        `json:"confidence"`
}

// NewSentiment clamps score and confidence into range and derives the label.
func NewSentiment(score, confidence float64) Sentiment {
	score = clamp(score, -1, 1)
	confidence = clamp(confidence, 0, 1)
	label := SentimentNeutral
	switch {
	case score >= 0.1:
		label = SentimentPositive
	case score <= -0.1:
		label = SentimentNegative
	}
	return Sentiment{Score: score, Label: label, Confidence: confidence}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// LinkPreview is Open Graph / meta-tag data for an item's URL.
type LinkPreview struct {
	Title          string `json:"title,omitempty"`
	Description    string `json:"description,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	SiteName       string `json:"site_name,omitempty"`
	ContentSnippet string `json:"content_snippet,omitempty"`
	FaviconURL     string `json:"favicon_url,omitempty"`
	ContentType    string `json:"content_type,omitempty"`
	ReadingTime    int    `json:"reading_time,omitempty"` // minutes
}

// NewFeedItem builds an item with the required fields set.
// A zero publishedAt is replaced with the current time so ordering stays total.
func NewFeedItem(id, providerID, title, source string, publishedAt time.Time) FeedItem {
	if publishedAt.IsZero() {
		publishedAt = time.Now()
	}
	return FeedItem{
		ID:          id,
		ProviderID:  providerID,
		Title:       title,
		Source:      source,
		PublishedAt: publishedAt.UTC(),
	}
}

// Key returns the global identity "<provider>/<id>".
func (f FeedItem) Key() string {
	return f.ProviderID + "/" + f.ID
}

// TimeAgo renders PublishedAt relative to now ("just now", "5m ago", "3d ago").
// Items older than a week show the date.
func (f FeedItem) TimeAgo(now time.Time) string {
	d := now.Sub(f.PublishedAt)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return f.PublishedAt.Format("2006-01-02")
	}
}

// SortNewestFirst orders items by PublishedAt descending.
// The sort is stable: items with equal timestamps keep their input order.
func SortNewestFirst(items []FeedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
}

// IntPtr is a helper for optional numeric metadata.
func IntPtr(v int) *int {
	return &v
}
