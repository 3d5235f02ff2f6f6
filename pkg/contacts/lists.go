package contacts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/davisshaver/audiencesync/pkg/audit"
	"github.com/davisshaver/audiencesync/pkg/provider"
)

// ListUpdateStatus is the tri-state outcome of UpdateLists. A no-op is
// deliberately distinct from a successful write so callers can tell
// "nothing to do" from "done".
type ListUpdateStatus int

const (
	// ListsUnchanged means the desired membership already held; no
	// provider call was made.
	ListsUnchanged ListUpdateStatus = iota

	// ListsUpdated means the delta was written to the provider.
	ListsUpdated
)

// UpdateLists replaces a contact's list membership with exactly the
// desired set, computed as a minimal delta against the provider's
// current view:
//
//   - desired IDs outside the known-lists universe are silently ignored;
//   - lists the contact is already on are not re-added;
//   - only lists the contact is actually on are removed.
//
// The narrowing keeps repeated identical calls idempotent and avoids
// remove calls for lists the contact was never on, which providers
// handle inconsistently.
func (e *Engine) UpdateLists(ctx context.Context, email string, desired []string, reason string) (ListUpdateStatus, error) {
	if e.provider == nil {
		return ListsUnchanged, newError(CodeInvalidProvider, "provider is not set")
	}
	lm, ok := e.provider.(provider.ListManager)
	if !ok {
		return ListsUnchanged, newError(CodeNotSupported, "not supported for this provider")
	}

	e.log.DebugContext(ctx, "updating contact lists",
		slog.String("provider", e.service()),
		slog.String("email", email),
		slog.Any("selection", desired))

	known, err := e.lists.KnownIDs(ctx)
	if err != nil {
		return ListsUnchanged, fmt.Errorf("contacts: load lists config: %w", err)
	}

	toAdd := intersect(known, desired)
	toRemove := subtract(known, desired)

	current, err := lm.ContactLists(ctx, email)
	if err != nil {
		return ListsUnchanged, fmt.Errorf("contacts: fetch current lists: %w", err)
	}

	toAdd = subtract(toAdd, current)
	toRemove = intersect(current, toRemove)

	if len(toAdd) == 0 && len(toRemove) == 0 {
		return ListsUnchanged, nil
	}

	if err := e.AddAndRemoveLists(ctx, email, toAdd, toRemove, reason); err != nil {
		return ListsUnchanged, err
	}
	return ListsUpdated, nil
}

// AddAndRemoveLists applies an explicit membership delta in a single
// provider request. Whether the provider issues one call or two
// internally is its own concern.
func (e *Engine) AddAndRemoveLists(ctx context.Context, email string, add, remove []string, reason string) error {
	if e.provider == nil {
		return newError(CodeInvalidProvider, "provider is not set")
	}
	lm, ok := e.provider.(provider.ListManager)
	if !ok {
		return newError(CodeNotSupported, "not supported for this provider")
	}

	err := lm.UpdateContactLists(ctx, email, add, remove, reason)

	e.hooks.emitListsUpdated(ListsUpdatedEvent{
		Provider: e.service(),
		Email:    email,
		Added:    add,
		Removed:  remove,
		Err:      err,
		Reason:   reason,
	})

	severity := audit.SeverityDebug
	var messages, codes []string
	if err != nil {
		severity = audit.SeverityError
		messages = []string{err.Error()}
		if code := ErrorCode(err); code != "" {
			codes = []string{code}
		}
	}
	e.trail.Record(ctx, audit.Event{
		Kind:         audit.KindUpdateLists,
		Reason:       reason,
		Severity:     severity,
		Provider:     e.service(),
		SubjectEmail: email,
		Added:        add,
		Removed:      remove,
		Errors:       messages,
		StatusCodes:  codes,
	})

	return err
}

// intersect returns the members of a that are also in b, in a's order.
func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// subtract returns the members of a that are not in b, in a's order.
func subtract(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := set[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
