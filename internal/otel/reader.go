package otel

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// Filter selects events when reading a log back.
type Filter struct {
	KindPrefix string // "cache" matches cache.hit, cache.miss, ...
	MinLevel   Level
	Comp       string
	Source     string
}

// Match reports whether ev passes every non-empty criterion.
func (f Filter) Match(ev Event) bool {
	if f.KindPrefix != "" && !strings.HasPrefix(string(ev.Kind), f.KindPrefix) {
		return false
	}
	if f.MinLevel != "" && ev.Level.Rank() < f.MinLevel.Rank() {
		return false
	}
	if f.Comp != "" && ev.Comp != f.Comp {
		return false
	}
	if f.Source != "" && ev.Source != f.Source {
		return false
	}
	return true
}

// ReadTail scans a JSONL event stream and returns the last n matching
// events, oldest first. Malformed lines are skipped.
func ReadTail(r io.Reader, n int, f Filter) ([]Event, error) {
	if n <= 0 {
		return nil, nil
	}
	tail := NewRecent(n)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev Event
		if json.Unmarshal(raw, &ev) != nil {
			continue
		}
		if f.Match(ev) {
			tail.Add(ev)
		}
	}
	return tail.Events(), scanner.Err()
}
