package feeds

import (
	"errors"
	"fmt"
)

// Kind classifies provider failures.
type Kind int

const (
	KindOther Kind = iota
	KindNetwork
	KindAuth
	KindRateLimit
	KindParse
	KindNotConfigured
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindRateLimit:
		return "rate limit"
	case KindParse:
		return "parse"
	case KindNotConfigured:
		return "not configured"
	default:
		return "other"
	}
}

// Error is the error type every provider returns.
type Error struct {
	Kind     Kind
	Provider string
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Provider == "" {
		return fmt.Sprintf("%s error: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Provider, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind, so the sentinels below work with
// errors.Is regardless of provider or message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Provider == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrOther         = &Error{Kind: KindOther}
	ErrNetwork       = &Error{Kind: KindNetwork}
	ErrAuth          = &Error{Kind: KindAuth}
	ErrRateLimit     = &Error{Kind: KindRateLimit}
	ErrParse         = &Error{Kind: KindParse}
	ErrNotConfigured = &Error{Kind: KindNotConfigured}
)

// Errorf builds a provider error with a formatted message.
func Errorf(kind Kind, provider, format string, args ...any) *Error {
	return &Error{Kind: kind, Provider: provider, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and provider to an underlying error.
// A nil err yields nil.
func Wrap(kind Kind, provider string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Provider: provider, Err: err}
}

// KindOf extracts the Kind of err. Errors that are not provider errors are
// KindOther.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

// WithProvider stamps a provider id onto err if it carries none.
func WithProvider(provider string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Provider != "" {
			return err
		}
		cp := *e
		cp.Provider = provider
		return &cp
	}
	return &Error{Kind: KindOther, Provider: provider, Err: err}
}
