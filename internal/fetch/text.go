package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText converts an HTML fragment to readable plain text.
// Paragraphs become blank-line separated, <br> becomes a newline and
// entities are decoded. Input that is not HTML passes through trimmed.
func PlainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, pre, blockquote").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("\n\n")
	})
	return normalizeLines(doc.Text())
}

// normalizeLines trims every line and collapses runs of blank lines to one.
func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// FirstLines returns at most n non-empty lines of s joined by newlines.
func FirstLines(s string, n int) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if len(out) >= n {
			break
		}
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// CollapseSpace joins all whitespace runs into single spaces.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// HashString returns the first 8 bytes of the SHA-256 of s, hex encoded.
func HashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:8])
}

// Truncate shortens s to maxLen runes, adding "..." if truncated. A
// non-positive maxLen gives "".
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
