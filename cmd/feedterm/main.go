// Command feedterm is a terminal news aggregator: it merges Hacker News,
// Reddit, crates.io, Finnhub, arXiv, prediction markets and any RSS feed
// into one newest-first stream, with comment threads and link previews.
//
// Usage:
//
//	feedterm fetch                   Merged feed from every ready provider
//	feedterm fetch -p hackernews     One provider's first page
//	feedterm more <provider>         Next page of one provider
//	feedterm search <provider> <q>   Provider-side search
//	feedterm comments --hn <id>      Comment thread
//	feedterm providers               Provider status
//	feedterm preview <url>           Link preview
//	feedterm cache stats|clear       Cache maintenance
//	feedterm watch                   Refresh periodically
//	feedterm events                  JSONL event log viewer
package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type globalOptions struct {
	Config   string `long:"config" env:"FEEDTERM_CONFIG" description:"Config file (default ~/.feedterm/config.yaml)"`
	DataDir  string `long:"data-dir" env:"FEEDTERM_DATA_DIR" description:"Directory for logs, events and the default cache (default ~/.feedterm)"`
	NoCache  bool   `long:"no-cache" description:"Do not read or write the cache"`
	LogLevel string `long:"log-level" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Log file level"`
	Trace    bool   `long:"trace" description:"Also record debug-level events (cache hits and misses)"`
}

var opts globalOptions

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.LongDescription = "Terminal news aggregator."

	add := func(name, short, long string, data any) {
		if _, err := parser.AddCommand(name, short, long, data); err != nil {
			panic(err)
		}
	}
	add("fetch", "Fetch the merged feed", "Fetch items from every ready provider, newest first, or from one provider with --provider.", &fetchCommand{})
	add("more", "Fetch the next page of one provider", "Fetch items from one provider starting at --offset.", &moreCommand{})
	add("search", "Search one provider", "Run a provider-side search.", &searchCommand{})
	add("comments", "Show a comment thread", "Show the comment thread of a Hacker News story or Reddit post.", &commentsCommand{})
	add("providers", "List providers and their status", "List registered providers, their readiness and capabilities.", &providersCommand{})
	add("preview", "Show a link preview", "Fetch and show the Open Graph preview of a URL.", &previewCommand{})
	add("watch", "Refresh the feed periodically", "Fetch the merged feed now and on every refresh interval until interrupted.", &watchCommand{})
	add("events", "Show the event log", "Show recent structured events, optionally following the log.", &eventsCommand{})

	cacheCmd, err := parser.AddCommand("cache", "Cache maintenance", "Inspect or clear the on-disk cache.", &struct{}{})
	if err != nil {
		panic(err)
	}
	if _, err := cacheCmd.AddCommand("stats", "Show cache statistics", "Show entry count, size and hit rate.", &cacheStatsCommand{}); err != nil {
		panic(err)
	}
	if _, err := cacheCmd.AddCommand("clear", "Remove every cache entry", "Remove every cache entry.", &cacheClearCommand{}); err != nil {
		panic(err)
	}

	if _, err := parser.Parse(); err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
