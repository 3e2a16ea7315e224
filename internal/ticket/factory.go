package ticket

import (
	"context"
	"strings"
)

// NewStore creates a postgres-backed knowledge base when configured,
// otherwise in-memory.
func NewStore(ctx context.Context, databaseURL string, dim int) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryStore(), nil
	}
	return NewPostgresStore(ctx, databaseURL, dim)
}
