package provider

import (
	"context"
	"errors"
	"maps"

	"github.com/davisshaver/audiencesync/pkg/lists"
)

// ErrContactNotFound is the normal negative result of a contact lookup.
// It is not an API failure: an unknown email means "new contact".
var ErrContactNotFound = errors.New("provider: contact not found")

// Contact is a contact record as exchanged with an ESP. Identity is the
// email address; providers are expected to match it case-insensitively.
type Contact struct {
	Email string `json:"email"`

	// Name is the contact's full name, when known.
	Name string `json:"name,omitempty"`

	// Metadata is an open-ended key-value mapping. Which keys survive the
	// trip to the wire is up to each adapter.
	Metadata map[string]string `json:"metadata,omitempty"`

	// Existing is the provider's snapshot of this contact before the
	// current write. Nil means the write creates a new contact.
	Existing *Contact `json:"existing_contact_data,omitempty"`
}

// Clone returns a deep copy. The reconciliation engine mutates metadata
// on its way to the wire and must not touch the caller's value.
func (c *Contact) Clone() *Contact {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Metadata != nil {
		cp.Metadata = maps.Clone(c.Metadata)
	}
	cp.Existing = c.Existing.Clone()
	return &cp
}

// ErrorRef carries the subject of a failed operation so adapters can
// produce a reader-safe message mentioning what was attempted.
type ErrorRef struct {
	Email   string
	ListIDs []string
}

// Provider is the base contract for an ESP backend.
type Provider interface {
	// Service is the stable provider identifier used in audit events.
	Service() string

	// UpsertContact creates or updates the contact and subscribes it to
	// the given lists. An empty lists slice writes the contact without
	// touching membership. API failures should be returned as *Error so
	// their native codes survive aggregation.
	UpsertContact(ctx context.Context, contact *Contact, subscribe []*lists.List) (*Contact, error)

	// GetContact fetches the provider's current view of a contact.
	// Returns ErrContactNotFound for unknown emails.
	GetContact(ctx context.Context, email string) (*Contact, error)

	// ReaderErrorMessage translates an internal error into a message safe
	// to show an end reader. Raw API error text must never leak through.
	ReaderErrorMessage(ref ErrorRef, err error) string
}

// Deleter is the optional permanent-delete capability.
type Deleter interface {
	DeleteContact(ctx context.Context, email string) error
}

// ListManager is the optional list-membership capability.
type ListManager interface {
	// ContactLists returns the public IDs of the lists the contact is
	// currently on.
	ContactLists(ctx context.Context, email string) ([]string, error)

	// UpdateContactLists applies the add/remove delta in one request.
	// Reason is an audit label with no control-flow meaning.
	UpdateContactLists(ctx context.Context, email string, add, remove []string, reason string) error
}

// Error is a structured failure reported by an ESP API, carrying the
// provider-native code that the engine aggregates verbatim.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}
