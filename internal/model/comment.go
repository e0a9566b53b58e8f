package model

import "time"

// CollapseDepth is the depth beyond which comments start collapsed.
// Display hint only; it never affects what is fetched.
const CollapseDepth = 2

// Comment is one node of a discussion thread. Each node owns its replies;
// the structure is a tree with no shared nodes.
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	TextPlain string    `json:"text_plain,omitempty"`
	Score     *int      `json:"score,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Depth     int       `json:"depth"`
	Collapsed bool      `json:"collapsed"`
	Replies   []Comment `json:"replies,omitempty"`
}

// NewComment creates a node at the given depth with the collapse hint applied.
func NewComment(id, author, text string, createdAt time.Time, depth int) Comment {
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return Comment{
		ID:        id,
		Author:    author,
		Text:      text,
		CreatedAt: createdAt.UTC(),
		Depth:     depth,
		Collapsed: depth > CollapseDepth,
	}
}

// TotalCount counts this comment and all of its descendants.
func (c Comment) TotalCount() int {
	n := 1
	for _, r := range c.Replies {
		n += r.TotalCount()
	}
	return n
}

// MaxDepth returns the deepest Depth found in the subtree rooted at c.
func (c Comment) MaxDepth() int {
	deepest := c.Depth
	for _, r := range c.Replies {
		if d := r.MaxDepth(); d > deepest {
			deepest = d
		}
	}
	return deepest
}

// CountThread sums TotalCount over a slice of top-level comments.
func CountThread(comments []Comment) int {
	n := 0
	for _, c := range comments {
		n += c.TotalCount()
	}
	return n
}
