// Package otel records structured events for feedterm.
//
// A Logger appends events to events.jsonl in the data directory. Recent
// keeps a bounded window of them in memory, and ReadTail reads the file
// back for the events command.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Rank orders levels by severity. Unknown levels rank as debug.
func (l Level) Rank() int {
	switch l {
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return 0
	}
}

// EventKind identifies the category of an event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Provider fan-out
	KindFetchStart    EventKind = "fetch.start"
	KindFetchComplete EventKind = "fetch.complete"
	KindFetchError    EventKind = "fetch.error"

	// Cache
	KindCacheHit   EventKind = "cache.hit"
	KindCacheMiss  EventKind = "cache.miss"
	KindCacheEvict EventKind = "cache.evict"
	KindCacheReset EventKind = "cache.reset"
	KindCacheError EventKind = "cache.error"

	// Coordinator
	KindRefresh EventKind = "coord.refresh"

	// System
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
)

// Event is one observability record. Every field except Kind and Time is
// optional.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"` // "feeds", "cache", "coord", "main"
	SessionID string         `json:"session_id,omitempty"`
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"` // computed from Dur at marshal time
	Count     int            `json:"count,omitempty"`
	Source    string         `json:"source,omitempty"` // provider id or cache key
	Query     string         `json:"query,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON converts Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
