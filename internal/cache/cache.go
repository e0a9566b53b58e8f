// Package cache is a persistent key/value cache with per-entry TTL and a
// total size budget.
//
// Entries live in a single SQLite database inside the cache directory. An
// entry moves Absent -> Valid -> Expired -> Absent: expiry is discovered
// lazily by Get, which deletes the entry. Independently, every Set checks
// the size budget and evicts the oldest quarter of entries when it is
// exceeded.
//
// Cache content is disposable. If the database cannot be opened (corrupt
// file, lock held), the directory is wiped and recreated.
package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abelbrown/feedterm/internal/logging"
	"github.com/abelbrown/feedterm/internal/otel"
)

// DBFile is the database file name inside the cache directory.
const DBFile = "cache.db"

// Memory opens a private in-memory cache when passed as dir.
const Memory = ":memory:"

// Manager is the cache handle. Safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	db       *sql.DB
	dir      string
	maxBytes int64
	now      func() time.Time
	logger   *otel.Logger

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger emits cache.* events to l.
func WithLogger(l *otel.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Open opens (or creates) the cache in dir with a budget of maxBytes.
// A store that fails to open is discarded and recreated once.
func Open(dir string, maxBytes int64, opts ...Option) (*Manager, error) {
	m := &Manager{dir: dir, maxBytes: maxBytes, now: time.Now}
	for _, o := range opts {
		o(m)
	}

	db, err := openDB(dir)
	if err != nil && dir != Memory {
		logging.Warn("Cache store unusable, resetting", "dir", dir, "error", err)
		m.logger.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindCacheReset, Comp: "cache", Err: err.Error()})
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			return nil, storeErr("reset", rmErr)
		}
		db, err = openDB(dir)
	}
	if err != nil {
		return nil, storeErr("open", err)
	}
	m.db = db
	return m, nil
}

func openDB(dir string) (*sql.DB, error) {
	connStr := "file::memory:"
	if dir != Memory {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir: %w", err)
		}
		connStr = "file:" + filepath.Join(dir, DBFile) + "?_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: a private :memory: database is per-connection, and a
	// single writer avoids SQLITE_BUSY between our own connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dir != Memory {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
		var check string
		if err := db.QueryRow("PRAGMA quick_check").Scan(&check); err != nil {
			db.Close()
			return nil, fmt.Errorf("integrity check: %w", err)
		}
		if check != "ok" {
			db.Close()
			return nil, fmt.Errorf("integrity check: %s", check)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		cached_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_cached_at ON entries(cached_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return db, nil
}

// Dir returns the cache directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Get decodes the value stored under key into v.
//
// Returns ErrNotFound if absent. If the entry's TTL has elapsed it is
// deleted and ErrExpired is returned. Both count as misses.
func (m *Manager) Get(key Key, v any) error {
	k := key.String()

	m.mu.Lock()
	defer m.mu.Unlock()

	var raw []byte
	err := m.db.QueryRow("SELECT value FROM entries WHERE key = ?", k).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		m.miss(k)
		return ErrNotFound
	}
	if err != nil {
		return storeErr("get", err)
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return &SerializationError{Key: k, Err: err}
	}

	if !entry.IsValid(m.now()) {
		if _, err := m.db.Exec("DELETE FROM entries WHERE key = ?", k); err != nil {
			return storeErr("delete expired", err)
		}
		m.miss(k)
		return ErrExpired
	}

	if err := json.Unmarshal(entry.Data, v); err != nil {
		return &SerializationError{Key: k, Err: err}
	}
	m.hits.Add(1)
	m.logger.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindCacheHit, Comp: "cache", Source: k})
	return nil
}

func (m *Manager) miss(k string) {
	m.misses.Add(1)
	m.logger.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindCacheMiss, Comp: "cache", Source: k})
}

// Entry returns the raw envelope under key without touching counters or
// deleting expired entries.
func (m *Manager) Entry(key Key) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var raw []byte
	err := m.db.QueryRow("SELECT value FROM entries WHERE key = ?", key.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, storeErr("get", err)
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, &SerializationError{Key: key.String(), Err: err}
	}
	return entry, nil
}

// Set stores v under key for ttl (truncated to whole seconds), replacing any
// previous entry, then enforces the size budget.
func (m *Manager) Set(key Key, v any, ttl time.Duration) error {
	k := key.String()

	data, err := json.Marshal(v)
	if err != nil {
		return &SerializationError{Key: k, Err: err}
	}
	now := m.now()
	raw, err := json.Marshal(Entry{Data: data, CachedAt: now, TTLSeconds: int64(ttl / time.Second)})
	if err != nil {
		return &SerializationError{Key: k, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// REPLACE deletes and reinserts, so rowid follows write order.
	if _, err := m.db.Exec(
		"INSERT OR REPLACE INTO entries (key, value, cached_at) VALUES (?, ?, ?)",
		k, raw, now.UnixNano(),
	); err != nil {
		return storeErr("set", err)
	}
	return m.evictIfNeeded()
}

// evictIfNeeded deletes the oldest max(1, n/4) entries when the total size
// of keys plus values exceeds the budget. Caller holds m.mu.
func (m *Manager) evictIfNeeded() error {
	if m.maxBytes <= 0 {
		return nil
	}

	var size, count int64
	err := m.db.QueryRow(
		"SELECT COALESCE(SUM(length(CAST(key AS BLOB)) + length(value)), 0), COUNT(*) FROM entries",
	).Scan(&size, &count)
	if err != nil {
		return storeErr("size", err)
	}
	if size <= m.maxBytes || count == 0 {
		return nil
	}

	n := count / 4
	if n < 1 {
		n = 1
	}
	res, err := m.db.Exec(`
		DELETE FROM entries WHERE key IN (
			SELECT key FROM entries ORDER BY cached_at ASC, rowid ASC LIMIT ?
		)`, n)
	if err != nil {
		return storeErr("evict", err)
	}
	deleted, _ := res.RowsAffected()
	m.evictions.Add(uint64(deleted))

	logging.Debug("Cache evicted entries", "count", deleted, "size", size, "budget", m.maxBytes)
	m.logger.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindCacheEvict, Comp: "cache", Count: int(deleted)})
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (m *Manager) Remove(key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.db.Exec("DELETE FROM entries WHERE key = ?", key.String()); err != nil {
		return storeErr("remove", err)
	}
	return nil
}

// Clear deletes every entry and resets the counters.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.db.Exec("DELETE FROM entries"); err != nil {
		return storeErr("clear", err)
	}
	m.hits.Store(0)
	m.misses.Store(0)
	m.evictions.Store(0)
	return nil
}

// Flush checkpoints the write-ahead log into the database file.
func (m *Manager) Flush() error {
	if m.dir == Memory {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return storeErr("flush", err)
	}
	return nil
}

// Close flushes and releases the store.
func (m *Manager) Close() error {
	flushErr := m.Flush()

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.db.Close(); err != nil {
		return storeErr("close", err)
	}
	return flushErr
}

// Stats returns the counters with entry count and size computed now.
func (m *Manager) Stats() (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{
		Hits:      m.hits.Load(),
		Misses:    m.misses.Load(),
		Evictions: m.evictions.Load(),
	}
	err := m.db.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(length(CAST(key AS BLOB)) + length(value)), 0) FROM entries",
	).Scan(&s.TotalEntries, &s.TotalSizeBytes)
	if err != nil {
		return s, storeErr("stats", err)
	}
	return s, nil
}
