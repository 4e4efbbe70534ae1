package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when no entry exists for the key.
var ErrCacheMiss = errors.New("cache: entry not found")

// Entry is the persisted envelope around one dataset snapshot. Entries are
// never mutated in place; a newer snapshot with the same key supersedes the
// older one atomically.
type Entry struct {
	Key       Key             `json:"-"`
	FetchedAt time.Time       `json:"fetched_at"`
	TTLClass  string          `json:"ttl_class"`
	Payload   json.RawMessage `json:"payload"`
}

// Store is the minimal durable backing-store contract: key to payload with
// atomic replace and timestamp metadata. A filesystem directory, a key-value
// store, or a plain map all satisfy it.
type Store interface {
	// Get returns the newest entry for the key, or ErrCacheMiss.
	Get(ctx context.Context, key Key) (Entry, error)
	// Put atomically publishes a new snapshot for e.Key.
	Put(ctx context.Context, e Entry) error
	// Sweep removes entries fetched before the cutoff. Best-effort
	// housekeeping, never correctness-critical.
	Sweep(ctx context.Context, olderThan time.Time) (int, error)
	Close() error
}
