package otel

import (
	"os"
	"sync/atomic"
)

// traceEnabled gates debug-level events. Set from FEEDTERM_TRACE at init.
var traceEnabled atomic.Bool

func init() {
	traceEnabled.Store(os.Getenv("FEEDTERM_TRACE") != "")
}

// TraceEnabled reports whether debug-level events are recorded.
func TraceEnabled() bool {
	return traceEnabled.Load()
}

// SetTraceEnabled turns debug-level events on or off (--trace flag).
func SetTraceEnabled(v bool) {
	traceEnabled.Store(v)
}
