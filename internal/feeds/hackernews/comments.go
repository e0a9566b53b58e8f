package hackernews

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/feedterm/internal/feeds"
	"github.com/abelbrown/feedterm/internal/fetch"
	"github.com/abelbrown/feedterm/internal/model"
)

// FetchComments loads the comment tree of a story. Top-level comments are
// depth 0; replies of a comment at maxDepth are never requested. Dead and
// deleted comments, and comments that fail to load, are left out.
func (p *Provider) FetchComments(ctx context.Context, storyID int64, maxDepth int) ([]model.Comment, error) {
	story, err := p.fetchItem(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if story == nil {
		return nil, feeds.Errorf(feeds.KindOther, ID, "item %d not found", storyID)
	}
	if maxDepth < 0 {
		maxDepth = 0
	}
	return p.fetchCommentLevel(ctx, story.Kids, 0, maxDepth)
}

func (p *Provider) fetchCommentLevel(ctx context.Context, ids []int64, depth, maxDepth int) ([]model.Comment, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	nodes := make([]*model.Comment, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchSize)
	for i, id := range ids {
		g.Go(func() error {
			it, err := p.fetchItem(gctx, id)
			if err != nil || !it.valid() {
				return nil
			}
			c := model.NewComment(strconv.FormatInt(it.ID, 10), it.By, it.Text, it.published(), depth)
			c.TextPlain = fetch.PlainText(it.Text)
			if depth < maxDepth && len(it.Kids) > 0 {
				replies, err := p.fetchCommentLevel(gctx, it.Kids, depth+1, maxDepth)
				if err != nil {
					return err
				}
				c.Replies = replies
			}
			nodes[i] = &c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, feeds.Wrap(feeds.KindNetwork, ID, err)
	}

	out := make([]model.Comment, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			out = append(out, *n)
		}
	}
	return out, nil
}
