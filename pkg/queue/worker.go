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
	"github.com/robfig/cron/v3"

	"github.com/davisshaver/audiencesync/pkg/audit"
	"github.com/davisshaver/audiencesync/pkg/contacts"
)

// intentWorker replays a subscribe intent through the engine's
// synchronous path. Errors propagate to River, which owns retry and
// backoff policy; the engine itself stays strictly one-shot.
type intentWorker struct {
	river.WorkerDefaults[intentArgs]
	engine *contacts.Engine
	log    *slog.Logger
}

func (w *intentWorker) Work(ctx context.Context, job *river.Job[intentArgs]) error {
	intent := job.Args.Intent
	w.log.InfoContext(ctx, "processing subscribe intent",
		slog.String("intent_id", intent.ID),
		slog.String("email", intent.Contact.Email),
		slog.Int("attempt", job.Attempt))

	_, err := w.engine.Subscribe(ctx, intent.Contact, intent.ListIDs, false, intent.Reason)
	return err
}

// archiveFlushWorker drains the buffered audit archive to object storage.
type archiveFlushWorker struct {
	river.WorkerDefaults[archiveFlushArgs]
	archiver *audit.Archiver
}

func (w *archiveFlushWorker) Work(ctx context.Context, _ *river.Job[archiveFlushArgs]) error {
	return w.archiver.Flush(ctx)
}

// Worker processes queued subscribe intents.
type Worker struct {
	client *river.Client[pgx.Tx]
	log    *slog.Logger
}

// WorkerOption configures the worker.
type WorkerOption func(*workerConfig)

type workerConfig struct {
	archiver *audit.Archiver
	log      *slog.Logger
}

// WithArchiver adds the periodic audit-archive flush job. Requires
// Config.ArchiveFlushSchedule to be set.
func WithArchiver(a *audit.Archiver) WorkerOption {
	return func(c *workerConfig) {
		c.archiver = a
	}
}

// WithWorkerLogger sets the worker's logger.
func WithWorkerLogger(log *slog.Logger) WorkerOption {
	return func(c *workerConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// NewWorker creates a worker bound to the given engine. Call Start to
// begin processing.
func NewWorker(pool *pgxpool.Pool, engine *contacts.Engine, cfg Config, opts ...WorkerOption) (*Worker, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}

	wc := &workerConfig{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(wc)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &intentWorker{engine: engine, log: wc.log})

	riverCfg := &river.Config{
		Logger:  wc.log,
		Workers: workers,
		Queues: map[string]river.QueueConfig{
			cfg.Queue: {MaxWorkers: cfg.MaxWorkers},
		},
	}

	if wc.archiver != nil && cfg.ArchiveFlushSchedule != "" {
		schedule, err := cron.ParseStandard(cfg.ArchiveFlushSchedule)
		if err != nil {
			return nil, fmt.Errorf("queue: parse archive flush schedule: %w", err)
		}
		river.AddWorker(workers, &archiveFlushWorker{archiver: wc.archiver})
		riverCfg.PeriodicJobs = []*river.PeriodicJob{
			river.NewPeriodicJob(
				schedule,
				func() (river.JobArgs, *river.InsertOpts) {
					return archiveFlushArgs{}, &river.InsertOpts{Queue: cfg.Queue}
				},
				&river.PeriodicJobOpts{RunOnStart: false},
			),
		}
	}

	client, err := river.NewClient(riverpgxv5.New(pool), riverCfg)
	if err != nil {
		return nil, fmt.Errorf("queue: create worker client: %w", err)
	}

	return &Worker{client: client, log: wc.log}, nil
}

// Start begins processing jobs. It returns once workers are running.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.client.Start(ctx); err != nil {
		return fmt.Errorf("queue: start worker: %w", err)
	}
	return nil
}

// Stop drains in-flight jobs and shuts the worker down.
func (w *Worker) Stop(ctx context.Context) error {
	if err := w.client.Stop(ctx); err != nil {
		return fmt.Errorf("queue: stop worker: %w", err)
	}
	return nil
}
