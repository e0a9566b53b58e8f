package otel

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

func decodeLines(t *testing.T, data string) []Event {
	t.Helper()
	var out []Event
	for _, line := range strings.Split(strings.TrimSpace(data), "\n") {
		if line == "" {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("bad line %q: %v", line, err)
		}
		out = append(out, ev)
	}
	return out
}

func TestFetchEventRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	before := time.Now()
	l.Emit(Event{
		Level:  LevelInfo,
		Kind:   KindFetchComplete,
		Comp:   "feeds",
		Source: "hackernews",
		Count:  30,
		Dur:    1500 * time.Microsecond,
	})
	l.Close()

	evs := decodeLines(t, buf.String())
	if len(evs) != 1 {
		t.Fatalf("got %d events, want 1", len(evs))
	}
	ev := evs[0]
	if ev.Kind != KindFetchComplete || ev.Source != "hackernews" || ev.Count != 30 {
		t.Errorf("decoded %+v", ev)
	}
	if ev.DurMs != 1.5 {
		t.Errorf("dur_ms = %v, want 1.5", ev.DurMs)
	}
	if ev.Time.Before(before) {
		t.Errorf("time %v was not stamped at emit", ev.Time)
	}
	if len(ev.SessionID) != 16 || ev.SessionID != l.SessionID() {
		t.Errorf("session id %q, logger has %q", ev.SessionID, l.SessionID())
	}
}

func TestEmptyFieldsAreOmitted(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Emit(Event{Kind: KindCacheReset, Time: time.Unix(0, 0).UTC()})
	l.Close()

	line := buf.String()
	for _, key := range []string{`"source"`, `"count"`, `"dur_ms"`, `"err"`, `"extra"`} {
		if strings.Contains(line, key) {
			t.Errorf("%s should be omitted: %s", key, line)
		}
	}
	if !strings.Contains(line, `"t":"1970-01-01T00:00:00Z"`) {
		t.Errorf("preset time should be kept: %s", line)
	}
}

func TestEmitFromManyProviders(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	providers := []string{"hackernews", "reddit", "arxiv", "cratesio"}
	var wg sync.WaitGroup
	for _, p := range providers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 25 {
				l.Emit(Event{Level: LevelInfo, Kind: KindFetchComplete, Source: p, Count: i})
			}
		}()
	}
	wg.Wait()
	l.Close()

	per := map[string]int{}
	for _, ev := range decodeLines(t, buf.String()) {
		per[ev.Source]++
	}
	for _, p := range providers {
		if per[p] != 25 {
			t.Errorf("%s: %d events written, want 25", p, per[p])
		}
	}
}

func TestEmitAfterCloseIsDropped(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Emit(Event{Kind: KindStartup})
	l.Close()
	l.Close()

	l.Emit(Event{Kind: KindShutdown})
	if got := len(decodeLines(t, buf.String())); got != 1 {
		t.Errorf("%d lines written, want 1", got)
	}
	if l.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", l.Dropped())
	}
}

// stallWriter blocks its first Write until release is closed.
type stallWriter struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (w *stallWriter) Write(p []byte) (int, error) {
	w.once.Do(func() {
		close(w.entered)
		<-w.release
	})
	return len(p), nil
}

func TestFullQueueCountsDrops(t *testing.T) {
	w := &stallWriter{entered: make(chan struct{}), release: make(chan struct{})}
	l := NewLogger(w)

	l.Emit(Event{Kind: KindRefresh})
	<-w.entered

	for range queueSize + 5 {
		l.Emit(Event{Kind: KindCacheMiss})
	}
	if l.Dropped() < 5 {
		t.Errorf("dropped = %d, want at least 5", l.Dropped())
	}

	close(w.release)
	l.Close()
}

func TestMirrorSeesEventsImmediately(t *testing.T) {
	l := NewNullLogger()
	defer l.Close()

	recent := NewRecent(8)
	l.Mirror(recent)
	l.Emit(Event{Level: LevelError, Kind: KindFetchError, Source: "reddit", Err: "429"})

	got := recent.Events()
	if len(got) != 1 || got[0].Source != "reddit" || got[0].SessionID != l.SessionID() {
		t.Fatalf("mirror = %+v", got)
	}

	l.Mirror(nil)
	l.Emit(Event{Kind: KindRefresh})
	if recent.Len() != 1 {
		t.Error("detached mirror should not receive events")
	}
}
