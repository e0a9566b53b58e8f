package feeds

import (
	"regexp"
	"strings"

	"github.com/abelbrown/feedterm/internal/model"
)

var (
	adURLPatterns = []string{
		`/sponsored/`, `/branded-content/`, `/advertisement/`, `/paid-post/`,
		`doubleclick\.net`, `googlesyndication\.com`, `utm_source=paid`,
	}
	// Ad markers count only as labels: leading "Sponsored:" or "Sponsored
	// by", or a bracketed tag. "State-sponsored" in a headline is news.
	adLabelPatterns = []string{
		`(?i)^\s*(sponsored|advertisement|promoted|promo|ad|paid post|paid content|partner content|branded content)\s*[:|]`,
		`(?i)^\s*(sponsored|brought to you) by\b`,
		`(?i)\[(ad|sponsored|advertisement|promoted)\]`,
	}
)

// Filter drops promotional and untitled items from a merged list.
type Filter struct {
	keywords []keyword
	urls     []*regexp.Regexp
	labels   []*regexp.Regexp // checked against title and summary
}

// keyword is a user phrase matched as whole words. Hyphenated compounds
// do not match.
type keyword struct {
	phrase string
	re     *regexp.Regexp
}

func newKeyword(phrase string) keyword {
	return keyword{
		phrase: phrase,
		re:     regexp.MustCompile(`(?i)(^|[^\pL\pN-])` + regexp.QuoteMeta(phrase) + `($|[^\pL\pN-])`),
	}
}

// DefaultFilter blocks common ad labels and ad-network URLs.
func DefaultFilter() *Filter {
	return &Filter{
		urls:   compileAll(adURLPatterns),
		labels: compileAll(adLabelPatterns),
	}
}

// NewFilter extends the defaults with user keywords and URL patterns.
func NewFilter(keywords, urlPatterns []string) *Filter {
	f := DefaultFilter()
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			f.keywords = append(f.keywords, newKeyword(kw))
		}
	}
	f.urls = append(f.urls, compileAll(urlPatterns)...)
	return f
}

// compileAll treats a pattern that is not a valid regexp as a literal.
func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			re = regexp.MustCompile(regexp.QuoteMeta(p))
		}
		out = append(out, re)
	}
	return out
}

// Reason explains why item is blocked, or returns "" to keep it.
func (f *Filter) Reason(item model.FeedItem) string {
	if strings.TrimSpace(item.Title) == "" {
		return "untitled"
	}
	for _, re := range f.urls {
		if re.MatchString(item.URL) {
			return "url " + re.String()
		}
	}
	for _, re := range f.labels {
		if re.MatchString(item.Title) || re.MatchString(item.Summary) {
			return "label " + re.String()
		}
	}
	for _, kw := range f.keywords {
		if kw.re.MatchString(item.Title) || kw.re.MatchString(item.Summary) {
			return "keyword " + kw.phrase
		}
	}
	return ""
}

// Apply keeps the items Reason lets through, in order, and reports how
// many were dropped. A nil Filter keeps everything.
func (f *Filter) Apply(items []model.FeedItem) ([]model.FeedItem, int) {
	if f == nil {
		return items, 0
	}
	kept := items[:0:0]
	for _, it := range items {
		if f.Reason(it) == "" {
			kept = append(kept, it)
		}
	}
	return kept, len(items) - len(kept)
}
