// Package rss adapts any RSS, Atom or JSON Feed URL into a provider.
package rss

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/abelbrown/feedterm/internal/feeds"
	"github.com/abelbrown/feedterm/internal/fetch"
	"github.com/abelbrown/feedterm/internal/model"
)

// summaryLen caps summaries built from full content.
const summaryLen = 200

// Feed describes one subscribed feed.
type Feed struct {
	ID       string `yaml:"id,omitempty"`
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Category string `yaml:"category,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// ProviderID returns f.ID, or "rss-<slug of name>" when unset.
func (f Feed) ProviderID() string {
	if f.ID != "" {
		return f.ID
	}
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(f.Name), "-"), "-")
	if slug == "" {
		slug = fetch.HashString(f.URL)
	}
	return "rss-" + slug
}

// Source fetches items from a single feed.
type Source struct {
	feeds.Unsupported

	feed   Feed
	client *fetch.Client
}

// New creates a provider for feed.
func New(feed Feed, opts fetch.Options) *Source {
	id := feed.ProviderID()
	return &Source{
		Unsupported: feeds.Unsupported{ProviderID: id},
		feed:        feed,
		client:      fetch.New(id, opts),
	}
}

func (s *Source) ID() string   { return s.feed.ProviderID() }
func (s *Source) Name() string { return s.feed.Name }

func (s *Source) Description() string {
	return "RSS feed " + s.feed.URL
}

func (s *Source) Status() feeds.Status {
	switch {
	case s.feed.Disabled:
		return feeds.Disabled
	case s.feed.URL == "":
		return feeds.NeedsConfig
	default:
		return feeds.Ready
	}
}

func (s *Source) Categories() []feeds.Category {
	if s.feed.Category == "" {
		return nil
	}
	return []feeds.Category{{ID: s.feed.Category, Name: s.feed.Category}}
}

func (s *Source) FetchItems(ctx context.Context, limit int) ([]model.FeedItem, error) {
	if s.feed.URL == "" {
		return nil, feeds.Errorf(feeds.KindNotConfigured, s.ID(), "feed URL not set")
	}
	parsed, err := s.client.GetFeed(ctx, s.feed.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.feed.URL, err)
	}

	items := make([]model.FeedItem, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		if limit >= 0 && len(items) >= limit {
			break
		}
		if strings.TrimSpace(entry.Title) == "" && entry.Link == "" {
			continue
		}
		items = append(items, s.toFeedItem(entry))
	}
	return items, nil
}

func (s *Source) toFeedItem(entry *gofeed.Item) model.FeedItem {
	// Stable id from the link; GUID when there is none.
	key := entry.Link
	if key == "" {
		key = entry.GUID
	}

	var published time.Time
	switch {
	case entry.PublishedParsed != nil:
		published = *entry.PublishedParsed
	case entry.UpdatedParsed != nil:
		published = *entry.UpdatedParsed
	}

	title := fetch.CollapseSpace(entry.Title)
	if title == "" {
		title = entry.Link
	}

	fi := model.NewFeedItem(fetch.HashString(key), s.ID(), title, s.feed.Name, published)
	fi.URL = entry.Link
	fi.Content = entry.Content

	summary := fetch.PlainText(entry.Description)
	if summary == "" && entry.Content != "" {
		summary = fetch.Truncate(fetch.CollapseSpace(fetch.PlainText(entry.Content)), summaryLen)
	}
	fi.Summary = summary

	if entry.Author != nil {
		fi.Author = entry.Author.Name
	}
	if entry.Image != nil {
		fi.Metadata.ImageURL = entry.Image.URL
	}
	if len(entry.Categories) > 0 {
		fi.Metadata.Tags = append([]string(nil), entry.Categories...)
	}
	return fi
}
