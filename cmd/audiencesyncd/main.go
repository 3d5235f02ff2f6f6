// Command audiencesyncd runs the contact sync service: the HTTP
// subscription API, the async intent worker, and the audit archive
// flusher, all sharing one reconciliation engine.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"golang.org/x/sync/errgroup"

	"github.com/davisshaver/audiencesync/pkg/api"
	"github.com/davisshaver/audiencesync/pkg/audit"
	"github.com/davisshaver/audiencesync/pkg/cache"
	"github.com/davisshaver/audiencesync/pkg/contacts"
	"github.com/davisshaver/audiencesync/pkg/db"
	"github.com/davisshaver/audiencesync/pkg/lists"
	"github.com/davisshaver/audiencesync/pkg/logger"
	"github.com/davisshaver/audiencesync/pkg/provider"
	"github.com/davisshaver/audiencesync/pkg/provider/constantcontact"
	"github.com/davisshaver/audiencesync/pkg/provider/resendesp"
	"github.com/davisshaver/audiencesync/pkg/queue"
)

type config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Provider selects the active ESP by service name.
	Provider string `env:"ESP_PROVIDER" envDefault:"resend"`

	// ListsFile points at the YAML lists catalog. Empty switches the
	// catalog to the Postgres store.
	ListsFile string `env:"LISTS_CONFIG_PATH"`

	RedisURL        string        `env:"REDIS_URL"`
	ListCacheTTL    time.Duration `env:"LIST_CACHE_TTL" envDefault:"5m"`
	ContactCacheTTL time.Duration `env:"CONTACT_CACHE_TTL" envDefault:"1m"`

	AsyncEnabled bool `env:"ASYNC_SUBSCRIBE_ENABLED"`
	DebugErrors  bool `env:"SYNC_DEBUG_ERRORS"`

	Sentry  logger.SentryConfig
	DB      db.Config
	Queue   queue.Config
	Archive audit.S3Config
	Resend  resendesp.Config
	CC      constantcontact.Config
}

func main() {
	if err := run(); err != nil {
		slog.Error("audiencesyncd exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	log := logger.NewWithSentry(cfg.Sentry, logLevel(cfg.LogLevel), api.RequestIDExtractor)

	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, lists.Migrations, cfg.DB.MigrationsTable, log); err != nil {
		return err
	}
	riverMigrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	if _, err := riverMigrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("migrate river schema: %w", err)
	}

	// Lists catalog: YAML file or the Postgres store, cached either way.
	var (
		source  lists.Source
		catalog api.Catalog
	)
	if cfg.ListsFile != "" {
		fileCfg, err := lists.LoadConfig(cfg.ListsFile)
		if err != nil {
			return err
		}
		source, catalog = fileCfg, fileCfg
	} else {
		store := lists.NewStore(pool)
		source, catalog = store, store
	}

	listCache, knownCache, contactCache := buildCaches(cfg)
	defer listCache.Close()
	defer knownCache.Close()
	defer contactCache.Close()
	source = lists.NewCached(source, listCache, knownCache, cfg.ListCacheTTL)

	registry := provider.NewRegistry()
	registry.Register(resendesp.New(cfg.Resend,
		resendesp.WithContactCache(contactCache, cfg.ContactCacheTTL)))
	registry.Register(constantcontact.New(ctx, cfg.CC, source))

	active, err := registry.Get(cfg.Provider)
	if err != nil {
		return err
	}

	var (
		archiver *audit.Archiver
		sinks    []audit.Sink
	)
	if cfg.Archive.Bucket != "" {
		archiver = audit.NewArchiver(audit.NewS3Client(cfg.Archive), cfg.Archive)
		sinks = append(sinks, archiver)
	}
	trail := audit.NewTrail(log, sinks...)

	engineOpts := []contacts.Option{
		contacts.WithLogger(log),
		contacts.WithAuditTrail(trail),
		contacts.WithDebugErrors(cfg.DebugErrors),
	}
	if cfg.AsyncEnabled {
		intents, err := queue.NewIntents(pool, cfg.Queue, log)
		if err != nil {
			return err
		}
		engineOpts = append(engineOpts, contacts.WithIntentQueue(intents))
	}
	engine := contacts.New(active, source, engineOpts...)

	workerOpts := []queue.WorkerOption{queue.WithWorkerLogger(log)}
	if archiver != nil {
		workerOpts = append(workerOpts, queue.WithArchiver(archiver))
	}
	worker, err := queue.NewWorker(pool, engine, cfg.Queue, workerOpts...)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.New(engine, catalog, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", slog.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return worker.Start(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
		_ = worker.Stop(shutdownCtx)
		if archiver != nil {
			if err := archiver.Flush(shutdownCtx); err != nil {
				log.Error("final archive flush failed", slog.Any("error", err))
			}
		}
		return nil
	})

	return g.Wait()
}

func buildCaches(cfg config) (cache.Cache[*lists.List], cache.Cache[[]string], cache.Cache[*provider.Contact]) {
	if cfg.RedisURL != "" {
		if opts, err := redis.ParseURL(cfg.RedisURL); err == nil {
			client := redis.NewClient(opts)
			return cache.NewRedis[*lists.List](client, "lists", cfg.ListCacheTTL),
				cache.NewRedis[[]string](client, "lists-known", cfg.ListCacheTTL),
				cache.NewRedis[*provider.Contact](client, "contacts", cfg.ContactCacheTTL)
		}
	}
	return cache.NewMemory[*lists.List](cfg.ListCacheTTL),
		cache.NewMemory[[]string](cfg.ListCacheTTL),
		cache.NewMemory[*provider.Contact](cfg.ContactCacheTTL)
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
