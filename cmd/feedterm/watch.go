package main

import (
	"fmt"
	"os"
	"time"

	"github.com/abelbrown/feedterm/internal/coord"
	"github.com/abelbrown/feedterm/internal/feeds"
	"github.com/abelbrown/feedterm/internal/model"
	"github.com/abelbrown/feedterm/internal/ui"
)

type watchCommand struct {
	Limit    int           `short:"n" long:"limit" description:"Items per provider (default display.item_limit)"`
	Interval time.Duration `short:"i" long:"interval" description:"Refresh interval (default fetch.refresh_interval)"`
	ListOutput
}

// Execute prints the feed, then only items not seen before on each refresh.
func (c *watchCommand) Execute(args []string) error {
	a, err := setup("watch")
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := interruptContext()
	defer stop()

	seen := make(map[string]bool)
	o := a.coordOpts
	if c.Interval > 0 {
		o.RefreshInterval = c.Interval
	}
	o.OnRefresh = func(items []model.FeedItem, failures []feeds.FetchFailure) {
		var fresh []model.FeedItem
		for _, it := range items {
			if !seen[it.Key()] {
				seen[it.Key()] = true
				fresh = append(fresh, it)
			}
		}
		fmt.Println(ui.Heading.Render(fmt.Sprintf("%s  %d new", time.Now().Format("15:04:05"), len(fresh))))
		for _, f := range failures {
			fmt.Fprintln(os.Stderr, ui.ErrorStyle.Render(fmt.Sprintf("%s: %v", f.ProviderID, f.Err)))
		}
		if len(fresh) > 0 {
			_ = c.print(fresh, false)
		}
	}

	w := coord.New(a.registry, a.coordCache, o)
	w.Start(ctx, a.limit(c.Limit))
	<-ctx.Done()
	w.Wait()
	return nil
}
