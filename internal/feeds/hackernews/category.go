package hackernews

import "strings"

// Category is one of the Firebase story listings.
type Category int

const (
	Top Category = iota
	CategoryNew
	Best
	Ask
	Show
	Job
)

// AllCategories in display order.
var AllCategories = []Category{Top, CategoryNew, Best, Ask, Show, Job}

// Endpoint is the listing path segment ("topstories").
func (c Category) Endpoint() string {
	switch c {
	case CategoryNew:
		return "newstories"
	case Best:
		return "beststories"
	case Ask:
		return "askstories"
	case Show:
		return "showstories"
	case Job:
		return "jobstories"
	default:
		return "topstories"
	}
}

// String is the short id used in config and on the command line.
func (c Category) String() string {
	switch c {
	case CategoryNew:
		return "new"
	case Best:
		return "best"
	case Ask:
		return "ask"
	case Show:
		return "show"
	case Job:
		return "job"
	default:
		return "top"
	}
}

// Label is the human-readable category name.
func (c Category) Label() string {
	switch c {
	case CategoryNew:
		return "New"
	case Best:
		return "Best"
	case Ask:
		return "Ask HN"
	case Show:
		return "Show HN"
	case Job:
		return "Jobs"
	default:
		return "Top"
	}
}

// SourceLabel is the FeedItem.Source for stories from this listing.
func (c Category) SourceLabel() string {
	switch c {
	case Ask:
		return "Ask HN"
	case Show:
		return "Show HN"
	case Job:
		return "HN Jobs"
	default:
		return "Hacker News"
	}
}

// ParseCategory maps a name to a Category. Unknown names are Top.
func ParseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "new":
		return CategoryNew
	case "best":
		return Best
	case "ask":
		return Ask
	case "show":
		return Show
	case "job", "jobs":
		return Job
	default:
		return Top
	}
}
