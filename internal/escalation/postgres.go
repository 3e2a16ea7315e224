package escalation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists escalations in PostgreSQL. The call id is the
// primary key, so repeated escalations for one call overwrite in place.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	err = backoff.Retry(func() error {
		return initSchema(ctx, pool)
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmt := `CREATE TABLE IF NOT EXISTS escalations (
		call_id TEXT PRIMARY KEY,
		problem TEXT NOT NULL,
		transcript TEXT[] NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("init escalations schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, rec Record) error {
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO escalations (call_id, problem, transcript, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (call_id) DO UPDATE
		 SET problem = EXCLUDED.problem,
		     transcript = EXCLUDED.transcript,
		     status = EXCLUDED.status,
		     created_at = EXCLUDED.created_at`,
		rec.CallID,
		rec.Problem,
		rec.Transcript,
		rec.Status,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert escalation: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, callID string) (Record, bool, error) {
	var rec Record
	err := s.pool.QueryRow(ctx,
		`SELECT call_id, problem, transcript, status, created_at
		 FROM escalations WHERE call_id = $1`,
		callID,
	).Scan(&rec.CallID, &rec.Problem, &rec.Transcript, &rec.Status, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("get escalation: %w", err)
	}
	return rec, true, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
