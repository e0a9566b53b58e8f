// Package feeds defines the provider contract and the registry that fans
// fetches out across providers.
//
// A Provider is one external content source normalized into model.FeedItem.
// Optional capabilities (offset pagination, search) are advertised through
// predicate methods; embed Unsupported to get the "not supported" defaults.
// Threaded comments are not part of this contract; providers that have them
// expose FetchComments on their concrete type.
package feeds

import (
	"context"
	"fmt"

	"github.com/abelbrown/feedterm/internal/model"
)

// StatusKind classifies a provider's readiness.
type StatusKind int

const (
	StatusReady StatusKind = iota
	StatusNeedsConfig
	StatusDisabled
	StatusError
)

// Status is a provider's current readiness plus an optional reason.
type Status struct {
	Kind   StatusKind
	Reason string // only meaningful for StatusError
}

var (
	Ready       = Status{Kind: StatusReady}
	NeedsConfig = Status{Kind: StatusNeedsConfig}
	Disabled    = Status{Kind: StatusDisabled}
)

// Errored builds an error status with a human-readable reason.
func Errored(reason string) Status {
	return Status{Kind: StatusError, Reason: reason}
}

// IsReady reports whether the provider can be fetched from.
func (s Status) IsReady() bool {
	return s.Kind == StatusReady
}

// Indicator is the single-glyph form used in compact listings.
func (s Status) Indicator() string {
	switch s.Kind {
	case StatusReady:
		return "✓"
	case StatusNeedsConfig:
		return "⚠"
	case StatusDisabled:
		return "○"
	default:
		return "✗"
	}
}

func (s Status) String() string {
	switch s.Kind {
	case StatusReady:
		return "✓ Ready"
	case StatusNeedsConfig:
		return "⚠ Needs Config"
	case StatusDisabled:
		return "○ Disabled"
	default:
		return fmt.Sprintf("✗ Error: %s", s.Reason)
	}
}

// Category is a named sub-feed of a provider ("top", "r/rust", "cs.AI").
type Category struct {
	ID   string
	Name string
}

// Provider is the interface all content sources implement.
type Provider interface {
	// ID is the stable registry key ("hackernews", "reddit").
	ID() string
	Name() string
	Description() string
	Status() Status
	Categories() []Category

	// FetchItems returns at most limit items. It may return fewer.
	FetchItems(ctx context.Context, limit int) ([]model.FeedItem, error)

	SupportsOffset() bool
	FetchItemsWithOffset(ctx context.Context, offset, limit int) ([]model.FeedItem, error)

	SupportsSearch() bool
	Search(ctx context.Context, query string, limit int) ([]model.FeedItem, error)
}

// Unsupported supplies the default optional-capability methods.
// Embed it in a provider and override what the source actually supports.
type Unsupported struct {
	ProviderID string
}

func (u Unsupported) SupportsOffset() bool { return false }

func (u Unsupported) FetchItemsWithOffset(context.Context, int, int) ([]model.FeedItem, error) {
	return nil, Errorf(KindOther, u.ProviderID, "pagination not supported")
}

func (u Unsupported) SupportsSearch() bool { return false }

func (u Unsupported) Search(context.Context, string, int) ([]model.FeedItem, error) {
	return nil, Errorf(KindOther, u.ProviderID, "search not supported")
}

// Categories defaults to no sub-feeds.
func (u Unsupported) Categories() []Category { return nil }

// ProviderInfo is a snapshot row for status listings.
type ProviderInfo struct {
	ID          string
	Name        string
	Description string
	Status      Status
	Offset      bool
	Search      bool
}
