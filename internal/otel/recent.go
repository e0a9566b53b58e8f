package otel

import (
	"maps"
	"sync"
)

// Recent holds the last N events in memory, oldest first.
type Recent struct {
	mu     sync.Mutex
	limit  int
	events []Event
}

// NewRecent keeps at most limit events. A non-positive limit keeps 256.
func NewRecent(limit int) *Recent {
	if limit <= 0 {
		limit = 256
	}
	return &Recent{limit: limit, events: make([]Event, 0, limit)}
}

// Add appends ev, evicting the oldest event once the window is full.
func (r *Recent) Add(ev Event) {
	ev.Extra = maps.Clone(ev.Extra)

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == r.limit {
		copy(r.events, r.events[1:])
		r.events = r.events[:r.limit-1]
	}
	r.events = append(r.events, ev)
}

// Events returns a copy of the window.
func (r *Recent) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Len is the number of events held.
func (r *Recent) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Matching returns up to n of the newest events that pass f, oldest first.
// n <= 0 means no cap.
func (r *Recent) Matching(f Filter, n int) []Event {
	all := r.Events()
	start := len(all)
	for i := len(all) - 1; i >= 0; i-- {
		if n > 0 && len(all)-start >= n {
			break
		}
		if f.Match(all[i]) {
			start--
			all[start] = all[i]
		}
	}
	return all[start:]
}
