package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps entries in a map. It backs tests and is the fallback
// target when a durable store reports a persistence failure.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string]Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]Entry)}
}

func (s *MemoryStore) Get(_ context.Context, key Key) (Entry, error) {
	s.mu.RLock()
	e, ok := s.m[key.String()]
	s.mu.RUnlock()
	if !ok {
		return Entry{}, ErrCacheMiss
	}
	return e, nil
}

func (s *MemoryStore) Put(_ context.Context, e Entry) error {
	s.mu.Lock()
	s.m[e.Key.String()] = e
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Sweep(_ context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, e := range s.m {
		if e.FetchedAt.Before(olderThan) {
			delete(s.m, k)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Close() error { return nil }

// Len reports the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
