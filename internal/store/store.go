package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the conversion tables when they do not exist yet.
// Statements are idempotent, so it is safe to run on every startup.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS conversion_jobs (
  id UUID PRIMARY KEY,
  project_name TEXT NOT NULL,
  namespace TEXT NOT NULL,
  source TEXT NOT NULL DEFAULT 'upload',
  status TEXT NOT NULL DEFAULT 'completed',
  successful_files INT NOT NULL DEFAULT 0,
  failed_files INT NOT NULL DEFAULT 0,
  large_files INT NOT NULL DEFAULT 0,
  warning TEXT NOT NULL DEFAULT '',
  artifact_url TEXT NOT NULL DEFAULT '',
  duration_ms BIGINT NOT NULL DEFAULT 0,
  created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS conversion_units (
  id UUID PRIMARY KEY,
  job_id UUID NOT NULL REFERENCES conversion_jobs(id) ON DELETE CASCADE,
  file_name TEXT NOT NULL,
  kind TEXT NOT NULL,
  status TEXT NOT NULL,
  detail TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_conversion_units_job_id ON conversion_units (job_id);
`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
