package contacts

import (
	"context"

	"github.com/davisshaver/audiencesync/pkg/audit"
	"github.com/davisshaver/audiencesync/pkg/provider"
)

// Delete permanently removes a contact from the active provider.
//
// Deletion is an optional provider capability; a provider without it
// fails with invalid_provider_method rather than panicking, since ESPs
// are read/write-asymmetric by design.
func (e *Engine) Delete(ctx context.Context, email, reason string) error {
	if email == "" {
		return newError(CodeInvalidUser, "invalid user")
	}
	if e.provider == nil {
		return newError(CodeInvalidProvider, "provider is not set")
	}

	d, ok := e.provider.(provider.Deleter)
	if !ok {
		return newError(CodeInvalidProviderMethod, "provider does not support deleting contacts")
	}

	err := d.DeleteContact(ctx, email)

	e.hooks.emitDeleted(DeletedEvent{
		Provider: e.service(),
		Email:    email,
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
		Kind:         audit.KindDeleteContact,
		Reason:       reason,
		Severity:     severity,
		Provider:     e.service(),
		SubjectEmail: email,
		Errors:       messages,
		StatusCodes:  codes,
	})

	return err
}
