// Package ui renders feed items, comment threads and provider status as
// styled terminal text.
package ui

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/feedterm/internal/model"
)

const (
	sourceWidth = 16
	ageWidth    = 8
)

// bands are checked in order; the first upper bound above the age wins.
var bands = []struct {
	under time.Duration
	label string
}{
	{15 * time.Minute, "Just Now"},
	{time.Hour, "Past Hour"},
	{24 * time.Hour, "Today"},
	{48 * time.Hour, "Yesterday"},
}

func timeBandAt(published, now time.Time) string {
	age := now.Sub(published)
	for _, b := range bands {
		if age < b.under {
			return b.label
		}
	}
	return "Older"
}

// StreamOptions controls RenderStream.
type StreamOptions struct {
	Width     int
	ShowBands bool // off for search results and single-provider pages
	Summaries bool
	Numbered  bool
}

// RenderStream renders one line per item in the given order. With
// ShowBands, a header is written whenever the age band changes.
func RenderStream(items []model.FeedItem, opts StreamOptions) string {
	if len(items) == 0 {
		return HelpStyle.Render("No items to display.")
	}
	if opts.Width <= 0 {
		opts.Width = 100
	}

	now := time.Now()
	var b strings.Builder
	lastBand := ""
	for i, item := range items {
		if band := timeBandAt(item.PublishedAt, now); opts.ShowBands && band != lastBand {
			lastBand = band
			b.WriteString(TimeBandHeader.Render(band) + "\n")
		}

		var num string
		if opts.Numbered {
			num = MetaItem.Render(fmt.Sprintf("%3d ", i+1))
		}
		b.WriteString(itemRow(item, num, opts.Width, now) + "\n")

		if opts.Summaries && item.Summary != "" {
			b.WriteString(Summary.Render(truncate(firstLine(item.Summary), opts.Width-6)) + "\n")
		}
	}
	return b.String()
}

// itemRow lays out: number, source column, title, dot leader, meta, age.
func itemRow(item model.FeedItem, num string, width int, now time.Time) string {
	src := truncateWith(item.Source, sourceWidth, "…")
	srcCol := lipgloss.NewStyle().Foreground(sourceColor(item.Source)).Render(src) +
		MetaItem.Render(leader(sourceWidth-utf8.RuneCountInString(src))) + " "

	meta := itemMeta(item)
	age := fmt.Sprintf("%*s", ageWidth, formatAgeShort(item.PublishedAt, now))

	room := width - lipgloss.Width(num) - sourceWidth - lipgloss.Width(meta) - ageWidth - 6
	left := num + srcCol + NormalItem.Render(truncate(item.Title, max(room, 20)))

	fill := width - lipgloss.Width(left) - lipgloss.Width(meta) - ageWidth - 2
	return left + MetaItem.Render(leader(fill)) + meta + " " + MetaItem.Render(age)
}

// itemMeta shows score and comment count when the provider supplied them.
func itemMeta(item model.FeedItem) string {
	var parts []string
	if s := item.Metadata.Score; s != nil {
		parts = append(parts, fmt.Sprintf("▲%d", *s))
	}
	if c := item.Metadata.Comments; c != nil {
		parts = append(parts, fmt.Sprintf("💬%d", *c))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + MetaItem.Render(strings.Join(parts, " "))
}

func formatAgeShort(published, now time.Time) string {
	switch age := now.Sub(published); {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}

// leader is n cells of dots ending in a space.
func leader(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(".", n-1) + " "
}

var sourcePalette = []lipgloss.Color{"62", "69", "39", "141", "208", "75", "99", "212"}

// sourceColor gives each source a stable color.
func sourceColor(name string) lipgloss.Color {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return sourcePalette[h.Sum32()%uint32(len(sourcePalette))]
}

func truncate(s string, n int) string {
	if n < 4 {
		return s
	}
	return truncateWith(s, n, "...")
}

// truncateWith cuts s to n runes, the last of them being tail.
func truncateWith(s string, n int, tail string) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-utf8.RuneCountInString(tail)]) + tail
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
