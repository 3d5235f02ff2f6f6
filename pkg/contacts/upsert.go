package contacts

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/davisshaver/audiencesync/pkg/audit"
	"github.com/davisshaver/audiencesync/pkg/lists"
	"github.com/davisshaver/audiencesync/pkg/provider"
)

// Upsert creates or updates a contact against the active provider and
// subscribes it to the given lists. It is the single funnel every contact
// write passes through.
//
// listIDs are public list IDs; unresolvable IDs are aggregated as
// invalid_list errors without blocking the rest of the batch. A nil or
// empty slice writes the contact without touching list membership.
//
// existing is an optional pre-fetched snapshot of the contact. It is
// never trusted as-is: when supplied, the engine re-fetches by email
// before acting, so a stale caller snapshot cannot leak into the write.
//
// On failure the returned error is a single reader-safe *Error in normal
// mode, or the full *ErrorList when the engine runs with debug errors.
func (e *Engine) Upsert(ctx context.Context, contact *provider.Contact, listIDs []string, reason string, existing *provider.Contact) (*provider.Contact, error) {
	if contact == nil || contact.Email == "" {
		return nil, newError(CodeInvalidUser, "contact email is required")
	}

	e.hooks.emitPreAdd(PreAddEvent{ListIDs: listIDs, Contact: contact})

	if e.provider == nil {
		return nil, newError(CodeInvalidProvider, "provider is not set")
	}

	if len(listIDs) > 0 {
		e.log.DebugContext(ctx, "adding contact to lists",
			slog.String("provider", e.service()), slog.Any("lists", listIDs))
	} else {
		e.log.DebugContext(ctx, "adding contact without lists",
			slog.String("provider", e.service()))
	}

	if existing != nil {
		existing = e.fetchExisting(ctx, existing.Email)
	}
	updating := existing != nil

	contact = contact.Clone()
	contact.Existing = existing

	contact = e.hooks.applyContactFilters(contact, listIDs, e.service())

	if contact.Metadata == nil {
		contact.Metadata = make(map[string]string, 1)
	}
	contact.Metadata[MetadataOriginKey] = MetadataOriginValue

	e.log.DebugContext(ctx, "contact metadata",
		slog.Any("keys", slices.Sorted(maps.Keys(contact.Metadata))))

	listIDs = e.hooks.applyListsFilters(listIDs, contact, e.service())

	var errs ErrorList
	resolved := make([]*lists.List, 0, len(listIDs))
	for _, id := range listIDs {
		l, err := e.lists.Resolve(ctx, id)
		if err != nil {
			errs.Add(CodeInvalidList, "invalid list ID: "+id)
			continue
		}
		resolved = append(resolved, l)
	}

	result, provErr := e.callUpsert(ctx, contact, resolved)
	if provErr != nil {
		errs.AddError(provErr, CodeAddContact)
	}

	e.hooks.emitUpserted(UpsertedEvent{
		Provider: e.service(),
		Contact:  contact,
		ListIDs:  listIDs,
		Result:   result,
		Err:      errs.Err(),
		Updating: updating,
		Reason:   reason,
	})

	severity := audit.SeverityDebug
	if errs.HasErrors() {
		severity = audit.SeverityError
	}
	e.trail.Record(ctx, audit.Event{
		Kind:         audit.KindUpsertContact,
		Reason:       reason,
		Severity:     severity,
		Provider:     e.service(),
		SubjectEmail: contact.Email,
		ListIDs:      listIDs,
		Contact:      contact,
		Errors:       errs.Messages(),
		StatusCodes:  errs.Codes(),
	})

	if errs.HasErrors() {
		if e.debugErrors {
			return nil, &errs
		}
		cause := provErr
		if cause == nil {
			cause = errs.Err()
		}
		reader := e.provider.ReaderErrorMessage(
			provider.ErrorRef{Email: contact.Email, ListIDs: listIDs}, cause)
		return nil, newError(CodeUpsertContact, reader)
	}

	return result, nil
}

// fetchExisting is the best-effort existing-state read: a not-found or
// failed lookup both mean "treat as new contact".
func (e *Engine) fetchExisting(ctx context.Context, email string) *provider.Contact {
	c, err := e.provider.GetContact(ctx, email)
	if err != nil {
		return nil
	}
	return c
}

// callUpsert shields the engine from a panicking adapter; a panic becomes
// a subscription_add_contact error like any other provider failure.
func (e *Engine) callUpsert(ctx context.Context, c *provider.Contact, resolved []*lists.List) (result *provider.Contact, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = newError(CodeAddContact, fmt.Sprint(r))
		}
	}()
	return e.provider.UpsertContact(ctx, c, resolved)
}
