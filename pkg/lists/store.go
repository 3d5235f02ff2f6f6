package lists

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrations holds the goose migrations for the subscription_lists table.
// Apply them with db.Migrate before constructing a Store.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// Store is a Postgres-backed lists catalog for deployments that manage
// lists at runtime instead of shipping a static YAML file. It satisfies
// Source.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store on top of an existing connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Resolve implements Source.
func (s *Store) Resolve(ctx context.Context, publicID string) (*List, error) {
	if publicID == "" {
		return nil, ErrEmptyPublicID
	}

	var l List
	err := s.pool.QueryRow(ctx,
		`SELECT public_id, provider_id, title, active
		   FROM subscription_lists
		  WHERE public_id = $1 AND active`,
		publicID,
	).Scan(&l.PublicID, &l.ProviderID, &l.Title, &l.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lists: resolve %q: %w", publicID, err)
	}

	return &l, nil
}

// KnownIDs implements Source.
func (s *Store) KnownIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT public_id FROM subscription_lists WHERE active ORDER BY position, public_id`)
	if err != nil {
		return nil, fmt.Errorf("lists: known ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("lists: known ids: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// All returns every stored list, active or not.
func (s *Store) All(ctx context.Context) ([]List, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT public_id, provider_id, title, active
		   FROM subscription_lists ORDER BY position, public_id`)
	if err != nil {
		return nil, fmt.Errorf("lists: all: %w", err)
	}
	defer rows.Close()

	var out []List
	for rows.Next() {
		var l List
		if err := rows.Scan(&l.PublicID, &l.ProviderID, &l.Title, &l.Active); err != nil {
			return nil, fmt.Errorf("lists: all: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Save upserts a list keyed by public ID.
func (s *Store) Save(ctx context.Context, l *List) error {
	if l.PublicID == "" || l.ProviderID == "" {
		return ErrInvalidConfig
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO subscription_lists (public_id, provider_id, title, active)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (public_id) DO UPDATE
		    SET provider_id = EXCLUDED.provider_id,
		        title       = EXCLUDED.title,
		        active      = EXCLUDED.active`,
		l.PublicID, l.ProviderID, l.Title, l.Active,
	)
	if err != nil {
		return fmt.Errorf("lists: save %q: %w", l.PublicID, err)
	}
	return nil
}
