package cache

import (
	"encoding/json"
	"time"
)

// Entry is the stored envelope around a cached payload. It is created by
// the write path and never mutated; a later Set replaces it.
type Entry struct {
	Data       json.RawMessage `json:"data"`
	CachedAt   time.Time       `json:"cached_at"`
	TTLSeconds int64           `json:"ttl_seconds"`
}

// IsValid reports whether fewer than TTLSeconds whole seconds have elapsed
// since CachedAt.
func (e Entry) IsValid(now time.Time) bool {
	return int64(now.Sub(e.CachedAt)/time.Second) < e.TTLSeconds
}

// RemainingTTL is the time left before the entry expires, never negative.
func (e Entry) RemainingTTL(now time.Time) time.Duration {
	left := e.CachedAt.Add(time.Duration(e.TTLSeconds) * time.Second).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Stats is a snapshot of cache counters. Entry count and size are computed
// when the snapshot is taken.
type Stats struct {
	TotalEntries   int64
	TotalSizeBytes int64
	Hits           uint64
	Misses         uint64
	Evictions      uint64
}

// HitRate is hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
