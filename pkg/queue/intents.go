package queue

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/davisshaver/audiencesync/pkg/contacts"
)

const (
	intentKind  = "contact_subscribe_intent"
	archiveKind = "audit_archive_flush"
)

// intentArgs is the wire form of a subscribe intent. Only the email
// participates in uniqueness, so repeated signups for one address
// collapse within the window regardless of intent ID.
type intentArgs struct {
	Email  string                   `json:"email" river:"unique"`
	Intent contacts.SubscribeIntent `json:"intent"`
}

func (intentArgs) Kind() string { return intentKind }

type archiveFlushArgs struct{}

func (archiveFlushArgs) Kind() string { return archiveKind }

// Intents enqueues subscribe intents without processing them. It
// implements contacts.IntentQueue; processing happens in a Worker,
// usually in a separate process.
type Intents struct {
	client *river.Client[pgx.Tx]
	cfg    Config
	log    *slog.Logger
}

// NewIntents creates an insert-only intent queue on the given pool.
func NewIntents(pool *pgxpool.Pool, cfg Config, log *slog.Logger) (*Intents, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// No Workers, no Queues: insert-only mode.
	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{Logger: log})
	if err != nil {
		return nil, fmt.Errorf("queue: create insert-only client: %w", err)
	}

	return &Intents{client: client, cfg: cfg, log: log}, nil
}

// Enqueue implements contacts.IntentQueue.
func (i *Intents) Enqueue(ctx context.Context, intent contacts.SubscribeIntent) error {
	opts := &river.InsertOpts{
		Queue:       i.cfg.Queue,
		MaxAttempts: i.cfg.MaxAttempts,
	}
	if i.cfg.UniqueWindow > 0 {
		opts.UniqueOpts = river.UniqueOpts{
			ByArgs:   true,
			ByPeriod: i.cfg.UniqueWindow,
		}
	}

	args := intentArgs{Email: intent.Contact.Email, Intent: intent}
	if _, err := i.client.Insert(ctx, args, opts); err != nil {
		return fmt.Errorf("queue: enqueue intent: %w", err)
	}

	i.log.DebugContext(ctx, "subscribe intent enqueued",
		slog.String("intent_id", intent.ID),
		slog.String("email", intent.Contact.Email))
	return nil
}
