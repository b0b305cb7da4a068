package storage

import (
	"context"

	"wallscope/internal/storage/postgres"
)

// Open builds a Store from the database URL. The literal "memory" selects
// the ephemeral map-backed store; anything else is treated as a Postgres DSN.
func Open(ctx context.Context, url string) (Store, error) {
	if url == "" || url == "memory" {
		return NewMemory(), nil
	}
	return postgres.NewStore(ctx, url)
}
