// Package postgres owns the durable state the reconciler diffs against:
// tracked terms, stored listings and favorites. Diff commits are
// transactional per (subscriber, term); there are no cross-term transactions.
package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// Open connects to Postgres and applies migrations.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// NewStore wraps an existing connection, used by tests.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) runMigrations() error {
	initSQL := `
CREATE TABLE IF NOT EXISTS tracked_terms(
  id UUID PRIMARY KEY,
  subscriber_id TEXT NOT NULL,
  term TEXT NOT NULL,
  active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  last_checked_at TIMESTAMPTZ,
  UNIQUE (subscriber_id, term)
);

CREATE TABLE IF NOT EXISTS stored_listings(
  id UUID PRIMARY KEY,
  subscriber_id TEXT NOT NULL,
  term_id UUID NOT NULL REFERENCES tracked_terms(id),
  external_id TEXT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  price TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  seller_name TEXT NOT NULL DEFAULT '',
  link TEXT NOT NULL DEFAULT '',
  image_url TEXT NOT NULL DEFAULT '',
  posted_at_raw TEXT NOT NULL DEFAULT '',
  posted_at TIMESTAMPTZ,
  scraped_at TIMESTAMPTZ NOT NULL,
  is_new BOOLEAN NOT NULL DEFAULT TRUE,
  marked_new_at TIMESTAMPTZ,
  is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
  deleted_at TIMESTAMPTZ,
  UNIQUE (subscriber_id, external_id)
);

CREATE INDEX IF NOT EXISTS idx_listings_term ON stored_listings(subscriber_id, term_id, is_deleted);
CREATE INDEX IF NOT EXISTS idx_listings_new ON stored_listings(is_new, marked_new_at);
CREATE INDEX IF NOT EXISTS idx_listings_retention ON stored_listings(is_deleted, deleted_at);

CREATE TABLE IF NOT EXISTS favorites(
  id UUID PRIMARY KEY,
  subscriber_id TEXT NOT NULL,
  listing_id UUID NOT NULL REFERENCES stored_listings(id),
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (subscriber_id, listing_id)
);
`
	_, err := s.db.Exec(initSQL)
	return err
}
