package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/abelbrown/feedterm/internal/feeds"
	"github.com/abelbrown/feedterm/internal/fetch"
	"github.com/abelbrown/feedterm/internal/model"
)

// thing is Reddit's typed envelope: {"kind": "t1", "data": {...}}.
type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listing struct {
	Children []thing `json:"children"`
}

type commentData struct {
	ID         string          `json:"id"`
	Author     string          `json:"author"`
	Body       string          `json:"body"`
	BodyHTML   string          `json:"body_html"`
	Score      *int            `json:"score"`
	CreatedUTC float64         `json:"created_utc"`
	Replies    json.RawMessage `json:"replies"`
}

// CommentsURL is the JSON endpoint for a post's comment tree.
func (p *Provider) CommentsURL(subreddit, postID string) string {
	return fmt.Sprintf("%s/r/%s/comments/%s.json?raw_json=1", p.baseURL, url.PathEscape(subreddit), url.PathEscape(postID))
}

// FetchComments loads a post's comment tree down to maxDepth. The response
// is a two-element array: the post listing, then the comment listing.
// Anything that is not a comment ("more" stubs included) is skipped.
func (p *Provider) FetchComments(ctx context.Context, subreddit, postID string, maxDepth int) ([]model.Comment, error) {
	var pages []thing
	if err := p.client.GetJSON(ctx, p.CommentsURL(subreddit, postID), &pages); err != nil {
		return nil, err
	}
	if len(pages) < 2 {
		return nil, feeds.Errorf(feeds.KindParse, ID, "expected post and comment listings, got %d", len(pages))
	}

	var top listing
	if err := json.Unmarshal(pages[1].Data, &top); err != nil {
		return nil, feeds.Wrap(feeds.KindParse, ID, fmt.Errorf("decode comment listing: %w", err))
	}
	if maxDepth < 0 {
		maxDepth = 0
	}
	return parseLevel(top.Children, 0, maxDepth), nil
}

func parseLevel(children []thing, depth, maxDepth int) []model.Comment {
	var out []model.Comment
	for _, child := range children {
		if c, ok := parseComment(child, depth, maxDepth); ok {
			out = append(out, c)
		}
	}
	return out
}

func parseComment(t thing, depth, maxDepth int) (model.Comment, bool) {
	if t.Kind != "t1" || depth > maxDepth {
		return model.Comment{}, false
	}
	var d commentData
	if err := json.Unmarshal(t.Data, &d); err != nil || d.ID == "" {
		return model.Comment{}, false
	}

	var created time.Time
	if d.CreatedUTC > 0 {
		created = time.Unix(int64(d.CreatedUTC), 0).UTC()
	} else {
		created = time.Now().UTC()
	}

	c := model.NewComment(d.ID, d.Author, d.Body, created, depth)
	c.Score = d.Score
	if d.BodyHTML != "" {
		c.TextPlain = fetch.PlainText(d.BodyHTML)
	} else {
		c.TextPlain = d.Body
	}

	if depth < maxDepth {
		c.Replies = parseLevel(replyChildren(d.Replies), depth+1, maxDepth)
	}
	return c, true
}

// replyChildren decodes the replies field, which is "" when a comment has
// no replies and a Listing thing otherwise.
func replyChildren(raw json.RawMessage) []thing {
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var t thing
	if json.Unmarshal(raw, &t) != nil || t.Kind != "Listing" {
		return nil
	}
	var l listing
	if json.Unmarshal(t.Data, &l) != nil {
		return nil
	}
	return l.Children
}
