package ticket

import (
	"context"
	"time"
)

// Record is one knowledge-base entry: a previously solved problem, its
// solution, and the embedding of the problem text. Append-only.
type Record struct {
	ID        string    `json:"id"`
	Problem   string    `json:"problem"`
	Solution  string    `json:"solution"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Match pairs a stored ticket with its cosine similarity to a query,
// score in [-1, 1]. Ephemeral, never persisted.
type Match struct {
	Record Record  `json:"ticket"`
	Score  float64 `json:"score"`
}

// Store persists tickets and answers exact nearest-neighbor queries by
// cosine similarity, ranked descending.
type Store interface {
	Add(ctx context.Context, rec Record) (Record, error)
	TopK(ctx context.Context, embedding []float32, k int) ([]Match, error)
	Close() error
}
