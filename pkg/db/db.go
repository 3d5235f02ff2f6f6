// Package db owns the Postgres connection pool and schema migrations for
// the lists catalog and the intent queue.
package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

var (
	ErrParseConfig = errors.New("db: failed to parse database configuration")
	ErrConnect     = errors.New("db: failed to open database connection")
	ErrMigrate     = errors.New("db: failed to apply migrations")
)

// Config holds Postgres connection parameters.
type Config struct {
	ConnectionString string `env:"DATABASE_URL,required"`

	MigrationsTable string `env:"DATABASE_MIGRATIONS_TABLE" envDefault:"schema_migrations"`

	// Startup retry handles transient network failures when the service
	// and the database restart together.
	RetryAttempts int           `env:"DATABASE_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"DATABASE_RETRY_INTERVAL" envDefault:"5s"`

	MaxConns int32 `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	MinConns int32 `env:"DATABASE_MIN_CONNS" envDefault:"2"`
}

// Connect establishes a pgx pool, retrying with linear backoff and
// verifying each attempt with a ping.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrParseConfig, err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns

	attempts := max(cfg.RetryAttempts, 1)
	for i := range attempts {
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrConnect, ctx.Err())
		case <-time.After(time.Duration(i+1) * cfg.RetryInterval):
		}
	}

	return nil, ErrConnect
}

// Migrate applies goose migrations from the embedded filesystem.
// The pool's connections are shared with goose via the stdlib bridge,
// so the *sql.DB handle is intentionally not closed here.
func Migrate(ctx context.Context, pool *pgxpool.Pool, migrations embed.FS, table string, log *slog.Logger) error {
	sqldb := stdlib.OpenDBFromPool(pool)

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{log})
	goose.SetTableName(table)

	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrMigrate, err)
	}
	// Embedded trees keep their SQL under a migrations/ directory.
	if err := goose.UpContext(ctx, sqldb, "migrations"); err != nil {
		return errors.Join(ErrMigrate, err)
	}
	return nil
}

type gooseLogger struct {
	log *slog.Logger
}

func (g gooseLogger) Printf(format string, args ...any) {
	g.log.Info(fmt.Sprintf(format, args...))
}

func (g gooseLogger) Fatalf(format string, args ...any) {
	// Goose propagates the error; avoid os.Exit so shutdown stays clean.
	g.log.Error(fmt.Sprintf(format, args...))
}
