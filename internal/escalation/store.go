package escalation

import (
	"context"
	"time"
)

// StatusPending marks a record awaiting human follow-up.
const StatusPending = "pending"

// Record is the durable artifact created when a call cannot be resolved
// interactively. One per call id; re-escalation overwrites.
type Record struct {
	CallID     string    `json:"call_id"`
	Problem    string    `json:"problem"`
	Transcript []string  `json:"transcript"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store persists escalation records keyed by call id.
type Store interface {
	Upsert(ctx context.Context, rec Record) error
	Get(ctx context.Context, callID string) (Record, bool, error)
	Close() error
}
