package ticket

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the knowledge base in PostgreSQL with pgvector.
// Ranking uses the `<=>` cosine-distance operator, which is exact for a
// sequential scan and therefore equivalent to the in-memory index.
type PostgresStore struct {
	pool *pgxpool.Pool
	dim  int
}

func NewPostgresStore(ctx context.Context, databaseURL string, dim int) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	// Fresh databases may still be coming up alongside this service.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	err = backoff.Retry(func() error {
		return initSchema(ctx, pool, dim)
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool, dim: dim}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool, dim int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector;`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS tickets (
			id TEXT PRIMARY KEY,
			problem TEXT NOT NULL,
			solution TEXT NOT NULL,
			embedding vector(%d),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`, dim),
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Add(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO tickets (id, problem, solution, embedding, created_at)
		 VALUES ($1, $2, $3, $4::vector, $5)`,
		rec.ID,
		rec.Problem,
		rec.Solution,
		vectorLiteral(rec.Embedding),
		rec.CreatedAt,
	)
	if err != nil {
		return Record{}, fmt.Errorf("add ticket: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) TopK(ctx context.Context, embedding []float32, k int) ([]Match, error) {
	if k <= 0 {
		k = 5
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, problem, solution, 1 - (embedding <=> $1::vector) AS score, created_at
		 FROM tickets
		 WHERE embedding IS NOT NULL
		 ORDER BY embedding <=> $1::vector
		 LIMIT $2`,
		vectorLiteral(embedding),
		k,
	)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()

	matches := make([]Match, 0, k)
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.Record.ID, &m.Record.Problem, &m.Record.Solution, &m.Score, &m.Record.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ticket row: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticket rows: %w", err)
	}
	return matches, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
