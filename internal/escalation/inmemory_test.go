package escalation

import (
	"context"
	"testing"
)

func TestUpsertOverwritesNotDuplicates(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	first := Record{
		CallID:     "CA123",
		Problem:    "app crashes",
		Transcript: []string{"User: app crashes"},
	}
	if err := s.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	second := Record{
		CallID:     "CA123",
		Problem:    "app crashes",
		Transcript: []string{"User: app crashes", "AI: is it resolved?", "User: no"},
	}
	if err := s.Upsert(ctx, second); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if s.Count() != 1 {
		t.Fatalf("Count() = %d after re-escalation, want 1", s.Count())
	}
	rec, ok, err := s.Get(ctx, "CA123")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v, %v", rec, ok, err)
	}
	if len(rec.Transcript) != 3 {
		t.Fatalf("stored transcript has %d turns, want the overwriting record's 3", len(rec.Transcript))
	}
	if rec.Status != StatusPending {
		t.Fatalf("Status = %q, want %q", rec.Status, StatusPending)
	}
	if rec.CreatedAt.IsZero() {
		t.Fatalf("CreatedAt should be populated")
	}
}

func TestGetMissing(t *testing.T) {
	s := NewInMemoryStore()
	_, ok, err := s.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Fatalf("Get() unknown id reported ok")
	}
}
