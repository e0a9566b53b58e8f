package otel

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestReadTailFiltersAndKeepsLastN(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	for i := 1; i <= 5; i++ {
		l.Emit(Event{Kind: KindFetchComplete, Level: LevelInfo, Comp: "feeds", Count: i})
		l.Emit(Event{Kind: KindCacheEvict, Level: LevelInfo, Comp: "cache", Count: i * 10})
	}
	l.Emit(Event{Kind: KindFetchError, Level: LevelError, Comp: "feeds", Source: "reddit", Err: "timeout"})
	l.Close()

	data := buf.String() + "not json\n\n"

	events, err := ReadTail(strings.NewReader(data), 3, Filter{KindPrefix: "fetch"})
	if err != nil {
		t.Fatalf("ReadTail: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].Count != 4 || events[1].Count != 5 || events[2].Kind != KindFetchError {
		t.Errorf("unexpected tail %+v", events)
	}

	errs, _ := ReadTail(strings.NewReader(data), 10, Filter{MinLevel: LevelWarn})
	if len(errs) != 1 || errs[0].Source != "reddit" {
		t.Errorf("level filter got %+v", errs)
	}

	cacheEvents, _ := ReadTail(strings.NewReader(data), 100, Filter{Comp: "cache"})
	if len(cacheEvents) != 5 {
		t.Errorf("comp filter got %d events, want 5", len(cacheEvents))
	}
}

func TestReadTailPreservesDuration(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Emit(Event{Kind: KindFetchComplete, Dur: 250 * time.Millisecond})
	l.Close()

	events, _ := ReadTail(&buf, 1, Filter{})
	if len(events) != 1 || events[0].DurMs != 250 {
		t.Errorf("got %+v", events)
	}
}

func TestOpenFileAppends(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	for i := 0; i < 2; i++ {
		l, err := OpenFile(dir)
		if err != nil {
			t.Fatalf("OpenFile: %v", err)
		}
		l.Emit(Event{Level: LevelInfo, Kind: KindStartup, Comp: "main"})
		l.Close()
	}

	f, err := os.Open(filepath.Join(dir, EventFile))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	events, _ := ReadTail(f, 10, Filter{})
	if len(events) != 2 {
		t.Errorf("got %d events across runs, want 2", len(events))
	}
	if events[0].SessionID == events[1].SessionID {
		t.Error("each run should have its own session id")
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Emit(Event{Kind: KindStartup})
	l.Mirror(NewRecent(4))
	if l.Dropped() != 0 || l.SessionID() != "" {
		t.Error("nil logger should report zero values")
	}
	l.Close()
}
