package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/feedterm/internal/feeds/hackernews"
	"github.com/abelbrown/feedterm/internal/feeds/reddit"
	"github.com/abelbrown/feedterm/internal/model"
	"github.com/abelbrown/feedterm/internal/ui"
)

type commentsCommand struct {
	HN     int64  `long:"hn" value-name:"ID" description:"Hacker News story id"`
	Reddit string `long:"reddit" value-name:"SUB/ID" description:"Reddit post as <subreddit>/<post id>, or a post URL"`
	Depth  int    `short:"d" long:"depth" default:"-1" description:"Maximum reply depth (default display.comment_depth)"`
}

func (c *commentsCommand) Execute(args []string) error {
	if (c.HN == 0) == (c.Reddit == "") {
		return errors.New("give exactly one of --hn or --reddit")
	}

	a, err := setup("comments")
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := interruptContext()
	defer stop()

	depth := c.Depth
	if depth < 0 {
		depth = a.cfg.Display.CommentDepth
	}

	var item model.FeedItem
	if c.HN != 0 {
		if item, err = a.coord.Story(ctx, hackernews.ID, c.HN); err != nil {
			return err
		}
	} else {
		sub, id, err := parseRedditRef(c.Reddit)
		if err != nil {
			return err
		}
		item = model.NewFeedItem("t3_"+id, reddit.ID, "r/"+sub+" "+id, "r/"+sub, time.Time{})
		item.Metadata.Subreddit = sub
		item.Metadata.RedditID = id
	}

	item, err = a.coord.WithComments(ctx, item, depth)
	if err != nil {
		return err
	}

	fmt.Print(ui.Heading.Render(item.Title) + "\n")
	if item.URL != "" {
		fmt.Print(ui.Summary.Render(ui.MetaItem.Render(item.URL)) + "\n")
	}
	fmt.Println()
	fmt.Print(ui.RenderThread(item.Metadata.Thread, termWidth()))
	return nil
}

// parseRedditRef accepts "sub/id", "r/sub/id" or a post URL.
func parseRedditRef(ref string) (sub, id string, err error) {
	ref = strings.TrimSpace(ref)
	if strings.Contains(ref, "/comments/") {
		_, rest, _ := strings.Cut(ref, "/r/")
		sub, _, _ = strings.Cut(rest, "/")
		id = reddit.PostID(ref, "")
	} else {
		sub, id, _ = strings.Cut(strings.TrimPrefix(ref, "r/"), "/")
	}
	if sub == "" || id == "" {
		return "", "", fmt.Errorf("cannot parse reddit post %q", ref)
	}
	return sub, id, nil
}
