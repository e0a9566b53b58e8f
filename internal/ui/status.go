package ui

import (
	"fmt"
	"strings"

	"github.com/abelbrown/feedterm/internal/cache"
	"github.com/abelbrown/feedterm/internal/feeds"
	"github.com/abelbrown/feedterm/internal/model"
)

// RenderProviders renders one status row per provider, with the capability
// flags and the most recent fetch failure if there was one. checks holds an
// optional per-provider result line from a test fetch.
func RenderProviders(rows []feeds.ProviderInfo, failures []feeds.FetchFailure, checks map[string]string) string {
	failed := make(map[string]string, len(failures))
	for _, f := range failures {
		failed[f.ProviderID] = f.Err.Error()
	}

	var b strings.Builder
	for _, r := range rows {
		caps := ""
		if r.Offset {
			caps += " paging"
		}
		if r.Search {
			caps += " search"
		}
		fmt.Fprintf(&b, "%s %-12s %-22s %s\n",
			statusStyle(r.Status).Render(r.Status.Indicator()),
			r.ID,
			r.Name,
			MetaItem.Render(strings.TrimSpace(caps)))
		if r.Description != "" {
			b.WriteString(Summary.Render(r.Description) + "\n")
		}
		if r.Status.Kind != feeds.StatusReady {
			b.WriteString(Summary.Render(statusStyle(r.Status).Render(r.Status.String())) + "\n")
		}
		if line, ok := checks[r.ID]; ok {
			b.WriteString(Summary.Render(statusReady.Render("check: "+line)) + "\n")
		}
		if msg, ok := failed[r.ID]; ok {
			b.WriteString(Summary.Render(statusError.Render("last fetch: "+msg)) + "\n")
		}
	}
	return b.String()
}

func statusStyle(s feeds.Status) interface{ Render(...string) string } {
	switch s.Kind {
	case feeds.StatusReady:
		return statusReady
	case feeds.StatusNeedsConfig:
		return statusWarning
	case feeds.StatusDisabled:
		return statusMuted
	default:
		return statusError
	}
}

// RenderPreview renders a link preview card.
func RenderPreview(url string, p *model.LinkPreview) string {
	var b strings.Builder
	title := p.Title
	if title == "" {
		title = url
	}
	b.WriteString(Heading.Render(title) + "\n")
	var meta []string
	if p.SiteName != "" {
		meta = append(meta, p.SiteName)
	}
	if p.ContentType != "" {
		meta = append(meta, p.ContentType)
	}
	if p.ReadingTime > 0 {
		meta = append(meta, fmt.Sprintf("%d min read", p.ReadingTime))
	}
	if len(meta) > 0 {
		b.WriteString(Summary.Render(MetaItem.Render(strings.Join(meta, " · "))) + "\n")
	}
	if p.Description != "" {
		b.WriteString(Summary.Render(p.Description) + "\n")
	}
	if p.ContentSnippet != "" && p.ContentSnippet != p.Description {
		b.WriteString(Summary.Render(p.ContentSnippet) + "\n")
	}
	if p.ImageURL != "" {
		b.WriteString(Summary.Render(MetaItem.Render("image: "+p.ImageURL)) + "\n")
	}
	return b.String()
}

// RenderCacheStats renders what the cache holds and, when there were any,
// this process's lookup and eviction counters.
func RenderCacheStats(dir string, s cache.Stats, budget int64) string {
	var b strings.Builder
	b.WriteString(Heading.Render("Cache") + "\n")
	fmt.Fprintf(&b, "  %-12s %s\n", "location", dir)
	fmt.Fprintf(&b, "  %-12s %d\n", "entries", s.TotalEntries)
	fmt.Fprintf(&b, "  %-12s %s / %s\n", "size", humanBytes(s.TotalSizeBytes), humanBytes(budget))
	// Hits, misses and evictions count from process start, so a one-shot
	// command that only opened the cache has nothing to report.
	if s.Hits+s.Misses > 0 {
		fmt.Fprintf(&b, "  %-12s %d hits, %d misses (%.1f%%) this run\n", "lookups", s.Hits, s.Misses, s.HitRate()*100)
	}
	if s.Evictions > 0 {
		fmt.Fprintf(&b, "  %-12s %d this run\n", "evictions", s.Evictions)
	}
	return b.String()
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
