package service

import (
	"context"
	"sync"
	"time"
)

// Counter is the state of a fixed window after an increment.
type Counter struct {
	Count   int64
	ResetAt time.Time
}

// CounterStore increments a windowed counter and returns its new value. The
// in-memory implementation is process local; the Redis one is shared by all
// instances pointing at the same server.
type CounterStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (Counter, error)
}

type windowEntry struct {
	count       int64
	windowStart time.Time
}

type InMemoryCounterStore struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	cleanup time.Time
	now     func() time.Time
}

func NewInMemoryCounterStore() *InMemoryCounterStore {
	return &InMemoryCounterStore{
		entries: make(map[string]*windowEntry),
		now:     time.Now,
	}
}

func (s *InMemoryCounterStore) Increment(_ context.Context, key string, window time.Duration) (Counter, error) {
	if window <= 0 {
		window = time.Minute
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.After(s.cleanup) {
		for k, e := range s.entries {
			if now.Sub(e.windowStart) >= window {
				delete(s.entries, k)
			}
		}
		s.cleanup = now.Add(window)
	}

	entry, ok := s.entries[key]
	if !ok || now.Sub(entry.windowStart) >= window {
		entry = &windowEntry{windowStart: now}
		s.entries[key] = entry
	}
	entry.count++
	return Counter{Count: entry.count, ResetAt: entry.windowStart.Add(window)}, nil
}
