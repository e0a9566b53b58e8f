package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/abelbrown/feedterm/internal/model"
	"github.com/abelbrown/feedterm/internal/otel"
	"github.com/abelbrown/feedterm/internal/ui"
)

// interruptContext is cancelled on Ctrl-C.
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// termWidth reads $COLUMNS, falling back to 100.
func termWidth() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 40 {
		return n
	}
	return 100
}

func (a *app) limit(n int) int {
	if n > 0 {
		return n
	}
	return a.cfg.Display.ItemLimit
}

// ListOutput holds the output flags shared by list commands.
type ListOutput struct {
	Summaries bool `short:"s" long:"summaries" description:"Show the first line of each summary"`
	JSON      bool `long:"json" description:"Print items as JSON"`
}

func (o ListOutput) print(items []model.FeedItem, bands bool) error {
	if o.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	fmt.Print(ui.RenderStream(items, ui.StreamOptions{
		Width:     termWidth(),
		ShowBands: bands,
		Summaries: o.Summaries,
		Numbered:  true,
	}))
	return nil
}

// printFailures reports providers that failed during the last fan-out.
func (a *app) printFailures() {
	for _, f := range a.registry.LastErrors() {
		fmt.Fprintln(os.Stderr, ui.ErrorStyle.Render(fmt.Sprintf("%s: %v", f.ProviderID, f.Err)))
	}
}

type fetchCommand struct {
	Provider string `short:"p" long:"provider" description:"Fetch only this provider"`
	Limit    int    `short:"n" long:"limit" description:"Items per provider (default display.item_limit)"`
	Refresh  bool   `short:"r" long:"refresh" description:"Ignore cached lists"`
	ListOutput
}

func (c *fetchCommand) Execute(args []string) error {
	a, err := setup("fetch")
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := interruptContext()
	defer stop()

	limit := a.limit(c.Limit)
	if c.Provider != "" {
		items, err := a.coord.FetchFrom(ctx, c.Provider, limit)
		if err != nil {
			return err
		}
		return c.print(items, false)
	}

	var items []model.FeedItem
	if c.Refresh {
		items = a.coord.Refresh(ctx, limit)
	} else {
		items = a.coord.FetchAll(ctx, limit)
	}
	a.printFailures()
	return c.print(items, true)
}

type moreCommand struct {
	Offset int `short:"o" long:"offset" required:"true" description:"Items to skip"`
	Limit  int `short:"n" long:"limit" description:"Page size (default display.item_limit)"`
	ListOutput
	Args struct {
		Provider string `positional-arg-name:"provider" required:"true"`
	} `positional-args:"yes"`
}

func (c *moreCommand) Execute(args []string) error {
	a, err := setup("more")
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := interruptContext()
	defer stop()

	items, err := a.coord.FetchMore(ctx, c.Args.Provider, c.Offset, a.limit(c.Limit))
	if err != nil {
		return err
	}
	return c.print(items, false)
}

type searchCommand struct {
	Limit int `short:"n" long:"limit" default:"20" description:"Maximum results"`
	ListOutput
	Args struct {
		Provider string   `positional-arg-name:"provider" required:"true"`
		Query    []string `positional-arg-name:"query" required:"1"`
	} `positional-args:"yes"`
}

func (c *searchCommand) Execute(args []string) error {
	a, err := setup("search")
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := interruptContext()
	defer stop()

	query := strings.Join(c.Args.Query, " ")
	items, err := a.coord.Search(ctx, c.Args.Provider, query, c.Limit)
	if err != nil {
		return err
	}
	return c.print(items, false)
}

type providersCommand struct {
	Check bool `long:"check" description:"Fetch one item from each provider to surface errors"`
}

func (c *providersCommand) Execute(args []string) error {
	a, err := setup("providers")
	if err != nil {
		return err
	}
	defer a.Close()

	var checks map[string]string
	if c.Check {
		ctx, stop := interruptContext()
		defer stop()
		a.coord.Refresh(ctx, 1)
		checks = checkResults(a.recent.Matching(otel.Filter{KindPrefix: string(otel.KindFetchComplete)}, 0))
	}
	fmt.Print(ui.RenderProviders(a.registry.StatusSummary(), a.registry.LastErrors(), checks))
	return nil
}

// checkResults summarizes fetch.complete events by provider; a later event
// replaces an earlier one.
func checkResults(evs []otel.Event) map[string]string {
	out := make(map[string]string, len(evs))
	for _, ev := range evs {
		noun := "items"
		if ev.Count == 1 {
			noun = "item"
		}
		out[ev.Source] = fmt.Sprintf("%d %s in %s", ev.Count, noun, ev.Dur.Round(time.Millisecond))
	}
	return out
}

type previewCommand struct {
	Args struct {
		URL string `positional-arg-name:"url" required:"true"`
	} `positional-args:"yes"`
}

func (c *previewCommand) Execute(args []string) error {
	a, err := setup("preview")
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := interruptContext()
	defer stop()

	p, err := a.coord.Preview(ctx, c.Args.URL)
	if err != nil {
		return err
	}
	fmt.Print(ui.RenderPreview(c.Args.URL, p))
	return nil
}

var errCacheDisabled = errors.New("cache is disabled (--no-cache or cache.enabled: false)")

type cacheStatsCommand struct{}

func (c *cacheStatsCommand) Execute(args []string) error {
	a, err := setup("cache stats")
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cache == nil {
		return errCacheDisabled
	}
	s, err := a.cache.Stats()
	if err != nil {
		return err
	}
	fmt.Print(ui.RenderCacheStats(a.cacheDir, s, a.cfg.CacheBytes()))
	return nil
}

type cacheClearCommand struct{}

func (c *cacheClearCommand) Execute(args []string) error {
	a, err := setup("cache clear")
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cache == nil {
		return errCacheDisabled
	}
	if err := a.cache.Clear(); err != nil {
		return err
	}
	fmt.Println("Cache cleared.")
	return nil
}
