package contacts

import "github.com/davisshaver/audiencesync/pkg/provider"

// PreAddEvent fires before any provider interaction on an upsert. There
// is no veto: this is pure observability.
type PreAddEvent struct {
	ListIDs []string
	Contact *provider.Contact
}

// SubscribedEvent fires after a successful subscribe. Contact carries the
// caller's original payload with full metadata, even though the write
// itself was narrowed.
type SubscribedEvent struct {
	Provider string
	Contact  *provider.Contact
	ListIDs  []string
	Result   *provider.Contact
	Updating bool
	Reason   string
}

// UpsertedEvent fires after every upsert attempt, success or not.
type UpsertedEvent struct {
	Provider string
	Contact  *provider.Contact
	ListIDs  []string
	Result   *provider.Contact
	Err      error
	Updating bool
	Reason   string
}

// ListsUpdatedEvent fires after a list-membership write.
type ListsUpdatedEvent struct {
	Provider string
	Email    string
	Added    []string
	Removed  []string
	Err      error
	Reason   string
}

// DeletedEvent fires after a delete attempt.
type DeletedEvent struct {
	Provider string
	Email    string
	Err      error
	Reason   string
}
