package feeds

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := Errorf(KindRateLimit, "finnhub", "429 from upstream")

	if !errors.Is(err, ErrRateLimit) {
		t.Error("expected errors.Is(err, ErrRateLimit)")
	}
	if errors.Is(err, ErrNetwork) {
		t.Error("rate limit error should not match ErrNetwork")
	}

	wrapped := fmt.Errorf("refresh: %w", err)
	if !errors.Is(wrapped, ErrRateLimit) {
		t.Error("kind should survive fmt.Errorf wrapping")
	}
	if KindOf(wrapped) != KindRateLimit {
		t.Errorf("KindOf = %v, want rate limit", KindOf(wrapped))
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindNetwork, "hackernews", cause)

	if !errors.Is(err, cause) {
		t.Error("Wrap should keep the underlying error in the chain")
	}
	if !strings.Contains(err.Error(), "hackernews") || !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("unexpected message %q", err.Error())
	}
	if Wrap(KindNetwork, "x", nil) != nil {
		t.Error("Wrap(nil) should be nil")
	}
}

func TestKindOfPlainError(t *testing.T) {
	if KindOf(errors.New("boom")) != KindOther {
		t.Error("plain errors should be KindOther")
	}
}

func TestWithProvider(t *testing.T) {
	err := WithProvider("reddit", Errorf(KindParse, "", "bad xml"))
	var e *Error
	if !errors.As(err, &e) {
		t.Fatal("expected *Error")
	}
	if e.Provider != "reddit" || e.Kind != KindParse {
		t.Errorf("got %+v", e)
	}

	err = WithProvider("reddit", errors.New("boom"))
	if KindOf(err) != KindOther || !strings.HasPrefix(err.Error(), "reddit:") {
		t.Errorf("unexpected %v", err)
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		s    Status
		want string
	}{
		{Ready, "✓ Ready"},
		{NeedsConfig, "⚠ Needs Config"},
		{Disabled, "○ Disabled"},
		{Errored("timeout"), "✗ Error: timeout"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
