package otel

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// EventFile is the JSONL file name inside the data directory.
const EventFile = "events.jsonl"

const queueSize = 4096

// Logger writes events as JSONL lines from a background goroutine, so
// Emit never blocks a fetch on disk I/O.
//
// A nil *Logger discards everything.
type Logger struct {
	session string
	queue   chan []byte
	out     io.Writer
	file    io.Closer

	mirror atomic.Pointer[Recent]

	dropped  atomic.Uint64
	closed   atomic.Bool
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewLogger starts a Logger writing to w. Close flushes it.
func NewLogger(w io.Writer) *Logger {
	id := make([]byte, 8)
	_, _ = rand.Read(id)

	l := &Logger{
		session: hex.EncodeToString(id),
		queue:   make(chan []byte, queueSize),
		out:     w,
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

// NewNullLogger is a Logger that writes nowhere.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

// OpenFile appends to dir/events.jsonl, creating dir as needed.
func OpenFile(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create event dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, EventFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	l := NewLogger(f)
	l.file = f
	return l, nil
}

func (l *Logger) run() {
	defer close(l.stopped)
	for line := range l.queue {
		if _, err := l.out.Write(line); err != nil {
			l.dropped.Add(1)
		}
	}
}

// Mirror also copies every accepted event into r, synchronously, so a
// command can inspect what happened during its own run. nil detaches.
func (l *Logger) Mirror(r *Recent) {
	if l != nil {
		l.mirror.Store(r)
	}
}

// Emit stamps Time and the session id on e and queues it for writing.
// Debug events are ignored unless tracing is on. A full queue or a closed
// logger counts the event as dropped.
func (l *Logger) Emit(e Event) {
	if l == nil || (e.Level == LevelDebug && !TraceEnabled()) {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.session

	if r := l.mirror.Load(); r != nil {
		r.Add(e)
	}

	line, err := json.Marshal(e)
	if err != nil {
		l.dropped.Add(1)
		return
	}
	l.enqueue(append(line, '\n'))
}

func (l *Logger) enqueue(line []byte) {
	// A send can still race with Close closing the queue.
	defer func() {
		if recover() != nil {
			l.dropped.Add(1)
		}
	}()
	if l.closed.Load() {
		l.dropped.Add(1)
		return
	}
	select {
	case l.queue <- line:
	default:
		l.dropped.Add(1)
	}
}

// SessionID identifies this process's events in a shared log.
func (l *Logger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.session
}

// Dropped counts events that were never written.
func (l *Logger) Dropped() uint64 {
	if l == nil {
		return 0
	}
	return l.dropped.Load()
}

// Close drains the queue and closes the file opened by OpenFile. Safe to
// call more than once.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.stopOnce.Do(func() {
		l.closed.Store(true)
		close(l.queue)
		<-l.stopped
		if l.file != nil {
			_ = l.file.Close()
		}
		if n := l.dropped.Load(); n > 0 {
			fmt.Fprintf(os.Stderr, "feedterm: %d events dropped during session %s\n", n, l.session)
		}
	})
}
