package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/feedterm/internal/otel"
)

type eventsCommand struct {
	Tail   int    `short:"t" long:"tail" default:"50" description:"Number of recent events to show"`
	Follow bool   `short:"f" long:"follow" description:"Keep printing new events (like tail -f)"`
	Kind   string `long:"kind" description:"Event kind prefix (e.g. 'cache')"`
	Level  string `long:"level" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Minimum level"`
	Comp   string `long:"comp" description:"Component (feeds, cache, coord, main)"`
	Source string `long:"source" description:"Provider id or cache key"`
	JSON   bool   `long:"json" description:"Output raw JSON lines"`
}

var levelStyles = map[otel.Level]lipgloss.Style{
	otel.LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	otel.LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
	otel.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	otel.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
}

// Execute reads the event log directly; it does not need the config or cache.
func (c *eventsCommand) Execute(args []string) error {
	path := filepath.Join(dataDir(), otel.EventFile)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("event log not found at %s; run another command first to generate events", path)
		}
		return err
	}
	defer f.Close()

	filter := otel.Filter{
		KindPrefix: c.Kind,
		MinLevel:   otel.Level(c.Level),
		Comp:       c.Comp,
		Source:     c.Source,
	}

	evs, err := otel.ReadTail(f, c.Tail, filter)
	for _, ev := range evs {
		c.print(ev)
	}
	if err != nil || !c.Follow {
		return err
	}

	// ReadTail left the offset at the end of the file; poll for appends.
	reader := bufio.NewReader(f)
	var pending []byte
	for {
		line, err := reader.ReadBytes('\n')
		pending = append(pending, line...)
		if err != nil {
			if err == io.EOF {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return err
		}

		raw := trimLine(pending)
		pending = pending[:0]
		if len(raw) == 0 {
			continue
		}
		var ev otel.Event
		if json.Unmarshal(raw, &ev) != nil {
			continue
		}
		if filter.Match(ev) {
			c.print(ev)
		}
	}
}

func (c *eventsCommand) print(ev otel.Event) {
	if c.JSON {
		data, err := json.Marshal(ev)
		if err == nil {
			fmt.Println(string(data))
		}
		return
	}
	fmt.Println(formatEvent(ev))
}

func formatEvent(ev otel.Event) string {
	ts := ev.Time.Local().Format("15:04:05.000")
	lvl := strings.ToUpper(string(ev.Level))
	if lvl == "" {
		lvl = "?"
	}
	if st, ok := levelStyles[ev.Level]; ok {
		lvl = st.Render(fmt.Sprintf("%-5s", lvl))
	}

	parts := []string{fmt.Sprintf("%s %s [%-6s] %-16s", ts, lvl, ev.Comp, ev.Kind)}

	if ev.Msg != "" {
		parts = append(parts, ev.Msg)
	}
	if ev.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs))
	}
	if ev.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", ev.Count))
	}
	if ev.Source != "" {
		parts = append(parts, "src="+ev.Source)
	}
	if ev.Query != "" {
		parts = append(parts, fmt.Sprintf("q=%q", ev.Query))
	}
	if ev.Err != "" {
		parts = append(parts, "err="+ev.Err)
	}
	for _, k := range slices.Sorted(maps.Keys(ev.Extra)) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, ev.Extra[k]))
	}

	return strings.Join(parts, " ")
}

func trimLine(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}
