package audit

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/davisshaver/audiencesync/pkg/provider"
)

// Severity classifies an audit event.
type Severity string

const (
	SeverityDebug Severity = "debug"
	SeverityError Severity = "error"
)

// Event kinds emitted by the reconciliation engine.
const (
	KindUpsertContact = "esp_sync_upsert_contact"
	KindDeleteContact = "esp_sync_delete_contact"
	KindUpdateLists   = "esp_sync_update_lists"
)

// Event is one ESP write attempt.
type Event struct {
	// Kind names the operation, e.g. KindUpsertContact.
	Kind string `json:"kind"`

	// Reason is the caller-supplied context label for the operation.
	Reason string `json:"reason,omitempty"`

	Severity Severity `json:"severity"`
	Provider string   `json:"provider"`

	// SubjectEmail is the contact the write was about.
	SubjectEmail string `json:"subject_email,omitempty"`

	ListIDs []string          `json:"lists,omitempty"`
	Added   []string          `json:"lists_to_add,omitempty"`
	Removed []string          `json:"lists_to_remove,omitempty"`
	Contact *provider.Contact `json:"contact,omitempty"`

	// Errors and StatusCodes mirror the engine's error aggregate.
	Errors      []string `json:"errors,omitempty"`
	StatusCodes []string `json:"status_codes,omitempty"`

	At time.Time `json:"at"`
}

// Sink receives audit events after they are logged. Sink failures never
// fail the operation being audited.
type Sink interface {
	Record(ctx context.Context, e Event) error
}

// Trail logs audit events and fans them out to sinks.
type Trail struct {
	log   *slog.Logger
	sinks []Sink
}

// NewTrail creates a trail. A nil logger discards log output.
func NewTrail(log *slog.Logger, sinks ...Sink) *Trail {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Trail{log: log, sinks: sinks}
}

// Record stamps, logs, and forwards the event. Sink errors are logged and
// swallowed: auditing is observability, not control flow.
func (t *Trail) Record(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	attrs := []any{
		slog.String("kind", e.Kind),
		slog.String("provider", e.Provider),
		slog.String("subject_email", e.SubjectEmail),
		slog.String("reason", e.Reason),
		slog.Any("lists", e.ListIDs),
		slog.Any("errors", e.Errors),
		slog.Any("status_codes", e.StatusCodes),
	}
	if e.Severity == SeverityError {
		t.log.ErrorContext(ctx, "esp sync failed", attrs...)
	} else {
		t.log.DebugContext(ctx, "esp sync", attrs...)
	}

	for _, s := range t.sinks {
		if err := s.Record(ctx, e); err != nil {
			t.log.ErrorContext(ctx, "audit sink failed", slog.Any("error", err))
		}
	}
}
