package lists

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates a public list ID with no corresponding list.
	ErrNotFound = errors.New("lists: list not found")

	// ErrEmptyPublicID indicates a lookup with an empty public ID.
	ErrEmptyPublicID = errors.New("lists: empty public list ID")
)

// List is a subscription list a contact can belong to.
type List struct {
	// PublicID is the opaque identifier exposed to subscribers and callers.
	PublicID string `yaml:"id" json:"id"`

	// ProviderID is the identifier the active ESP uses for this list.
	ProviderID string `yaml:"provider_id" json:"provider_id"`

	// Title is the human-readable list name, for audit output only.
	Title string `yaml:"title" json:"title,omitempty"`

	// Active marks whether the list accepts new subscriptions.
	// Inactive lists resolve like unknown ones.
	Active bool `yaml:"active" json:"active"`
}

// Source resolves public list IDs and reports the universe of known lists.
type Source interface {
	// Resolve maps a public list ID to its List.
	// Returns ErrNotFound for unknown or inactive IDs.
	Resolve(ctx context.Context, publicID string) (*List, error)

	// KnownIDs returns the public IDs of every active list.
	KnownIDs(ctx context.Context) ([]string, error)
}
