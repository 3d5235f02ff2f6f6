package queue

import (
	"errors"
	"time"
)

// ErrPoolRequired indicates a nil connection pool.
var ErrPoolRequired = errors.New("queue: pgx pool is required")

// Config holds queue settings.
type Config struct {
	// Queue is the River queue subscribe intents run on.
	Queue string `env:"INTENT_QUEUE_NAME" envDefault:"contacts"`

	// MaxWorkers caps concurrent intent processing. Provider APIs are
	// rate-limited; keep this modest.
	MaxWorkers int `env:"INTENT_QUEUE_MAX_WORKERS" envDefault:"10"`

	// MaxAttempts caps retries per intent before River discards it.
	MaxAttempts int `env:"INTENT_QUEUE_MAX_ATTEMPTS" envDefault:"5"`

	// UniqueWindow collapses identical intents enqueued within this
	// period into a single job.
	UniqueWindow time.Duration `env:"INTENT_QUEUE_UNIQUE_WINDOW" envDefault:"1m"`

	// ArchiveFlushSchedule is a cron expression for periodic audit
	// archive flushes. Empty disables the periodic job.
	ArchiveFlushSchedule string `env:"AUDIT_ARCHIVE_FLUSH_SCHEDULE" envDefault:"*/15 * * * *"`
}
