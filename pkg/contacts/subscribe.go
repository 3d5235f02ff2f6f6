package contacts

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/davisshaver/audiencesync/pkg/provider"
)

// subscribeMetadataKeys are the only metadata keys a subscribe-triggered
// write may carry. Subscribe is narrower than Upsert: arbitrary metadata
// must not leak into a write just because a signup form sent it along.
var subscribeMetadataKeys = map[string]struct{}{
	"status": {},
	"name":   {},
}

// SubscribeResult is the outcome of a Subscribe call.
type SubscribeResult struct {
	// Contact is the provider's canonical record after the write.
	// Nil when the request was queued.
	Contact *provider.Contact

	// Queued marks the async path: the write will happen eventually, or
	// not at all. Callers must not expect read-after-write consistency.
	Queued bool

	// Updating reports whether a prior contact existed for this email.
	Updating bool
}

// SubscribeIntent is a deferred subscribe request handed to the intent
// queue on the async path.
type SubscribeIntent struct {
	ID      string            `json:"id"`
	Contact *provider.Contact `json:"contact"`
	ListIDs []string          `json:"list_ids,omitempty"`
	Reason  string            `json:"reason,omitempty"`
}

// IntentQueue defers subscribe requests to a background worker.
type IntentQueue interface {
	Enqueue(ctx context.Context, intent SubscribeIntent) error
}

// Subscribe opts a contact into newsletter communications via an upsert.
//
// With async requested and an intent queue configured, the request is
// enqueued and Subscribe returns immediately with a Queued result; no
// provider call happens in this invocation. Otherwise the write is
// synchronous and the result carries the provider's canonical contact.
func (e *Engine) Subscribe(ctx context.Context, contact *provider.Contact, listIDs []string, async bool, reason string) (*SubscribeResult, error) {
	if contact == nil || contact.Email == "" {
		return nil, newError(CodeInvalidUser, "contact email is required")
	}

	if async && e.asyncEnabled && e.intents != nil {
		intent := SubscribeIntent{
			ID:      uuid.NewString(),
			Contact: contact.Clone(),
			ListIDs: listIDs,
			Reason:  reason,
		}
		if err := e.intents.Enqueue(ctx, intent); err != nil {
			return nil, fmt.Errorf("contacts: enqueue subscribe intent: %w", err)
		}
		return &SubscribeResult{Queued: true}, nil
	}

	if e.provider == nil {
		return nil, newError(CodeInvalidProvider, "provider is not set")
	}

	existing := e.fetchExisting(ctx, contact.Email)
	updating := existing != nil

	narrowed := contact.Clone()
	for k := range narrowed.Metadata {
		if _, ok := subscribeMetadataKeys[k]; !ok {
			delete(narrowed.Metadata, k)
		}
	}

	result, err := e.Upsert(ctx, narrowed, listIDs, reason, existing)
	if err != nil {
		return nil, err
	}

	// The subscribed event carries the caller's original contact with its
	// full metadata so observers can act on what the write excluded.
	e.hooks.emitSubscribed(SubscribedEvent{
		Provider: e.service(),
		Contact:  contact,
		ListIDs:  listIDs,
		Result:   result,
		Updating: updating,
		Reason:   reason,
	})

	return &SubscribeResult{Contact: result, Updating: updating}, nil
}
