package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps entries in a cache_entries table. The upsert runs in a
// single statement, so a concurrent reader sees either the old row or the
// new one, never a partial write.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// postgresSchema creates the cache table if it does not exist.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	fingerprint TEXT NOT NULL,
	kind        TEXT NOT NULL,
	payload     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (fingerprint, kind)
)`

// NewPostgresStore connects to the database and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create cache table: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Get returns the entry for fingerprint within kind.
func (s *PostgresStore) Get(ctx context.Context, fingerprint string, kind Kind) (*Entry, error) {
	entry := &Entry{Fingerprint: fingerprint, Kind: kind}
	err := s.pool.QueryRow(ctx,
		`SELECT payload, created_at FROM cache_entries WHERE fingerprint = $1 AND kind = $2`,
		fingerprint, string(kind),
	).Scan(&entry.Payload, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return entry, nil
}

// Put upserts the entry. Last write wins.
func (s *PostgresStore) Put(ctx context.Context, fingerprint string, kind Kind, payload json.RawMessage) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cache_entries (fingerprint, kind, payload, created_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (fingerprint, kind) DO UPDATE SET payload = $3, created_at = NOW()`,
		fingerprint, string(kind), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry in the kind partition.
func (s *PostgresStore) Clear(ctx context.Context, kind Kind) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM cache_entries WHERE kind = $1`, string(kind)); err != nil {
		return fmt.Errorf("failed to clear cache partition: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
