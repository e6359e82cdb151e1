package index

import (
	"context"
	"fmt"
)

// Store persists the provision keys of each indexed statute. Keys are the
// canonical strings produced by yomikae.Reference.Key.
type Store interface {
	// AddLaw registers a statute even if it has no provisions.
	AddLaw(ctx context.Context, lawID string) error

	// AddProvision stores one provision key (idempotent).
	AddProvision(ctx context.Context, lawID, key string) error

	// AddProvisions stores a batch of keys in one transaction.
	AddProvisions(ctx context.Context, lawID string, keys []string) error

	// HasProvision reports whether key exists in lawID.
	HasProvision(ctx context.Context, lawID, key string) (bool, error)

	// HasLaw reports whether lawID has been indexed.
	HasLaw(ctx context.Context, lawID string) (bool, error)

	// Count returns the number of keys stored for lawID.
	Count(ctx context.Context, lawID string) (int, error)

	// Close releases the underlying resources.
	Close() error
}

// MemoryPath selects the in-memory store.
const MemoryPath = ":memory:"

// Config for store initialization.
type Config struct {
	// Path is the database file path.
	// Use ":memory:" for an in-memory index (useful for testing).
	Path string
}

// New creates a Store. ":memory:" returns a MemoryStore; any other path
// opens a SQLite database.
func New(cfg Config) (Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if cfg.Path == MemoryPath {
		return NewMemory(), nil
	}
	return NewSQLite(cfg.Path)
}
