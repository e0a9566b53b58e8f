package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/feedterm/internal/model"
)

// RenderThread renders a comment tree, indenting two columns per level.
// Collapsed comments show only their byline and reply count.
func RenderThread(thread []model.Comment, width int) string {
	if len(thread) == 0 {
		return HelpStyle.Render("No comments.")
	}
	if width <= 0 {
		width = 100
	}
	var b strings.Builder
	now := time.Now()
	for _, c := range thread {
		renderComment(&b, c, width, now)
	}
	return b.String()
}

func renderComment(b *strings.Builder, c model.Comment, width int, now time.Time) {
	indent := strings.Repeat("  ", c.Depth)
	byline := CommentAuthor.Render(c.Author) + " " + MetaItem.Render(formatAgeShort(c.CreatedAt, now))
	if c.Score != nil {
		byline += MetaItem.Render(fmt.Sprintf(" ▲%d", *c.Score))
	}

	if c.Collapsed {
		n := model.CountThread(c.Replies)
		b.WriteString(indent + "[+] " + byline + MetaItem.Render(fmt.Sprintf(" (%d replies hidden)", n)) + "\n")
		return
	}

	b.WriteString(indent + byline + "\n")
	text := c.TextPlain
	if text == "" {
		text = c.Text
	}
	body := lipgloss.NewStyle().Width(max(width-len(indent), 20)).Render(text)
	for _, line := range strings.Split(body, "\n") {
		b.WriteString(indent + line + "\n")
	}
	for _, child := range c.Replies {
		renderComment(b, child, width, now)
	}
}
