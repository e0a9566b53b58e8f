package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no entry exists for the key.
	ErrNotFound = errors.New("cache: not found")

	// ErrExpired means an entry existed but its TTL had elapsed. The entry
	// is deleted by the lookup that reports this.
	ErrExpired = errors.New("cache: expired")

	// ErrStore wraps backing-store failures.
	ErrStore = errors.New("cache: store error")
)

// SerializationError reports a payload that could not be encoded or decoded.
type SerializationError struct {
	Key string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("cache: serialize %s: %v", e.Key, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// IsMiss reports whether err means "value unavailable, recompute it".
func IsMiss(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpired)
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
