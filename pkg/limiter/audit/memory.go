package audit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore implements Store using an in-memory slice. It is the
// default backend: fast, bounded, and lost on process exit.
type MemoryStore struct {
	mu         sync.RWMutex
	events     []*Event
	maxEntries int
}

// NewMemoryStore creates an in-memory store holding at most maxEntries
// events; the oldest are discarded when the cap is reached. A
// non-positive cap defaults to 10000.
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &MemoryStore{maxEntries: maxEntries}
}

// Save persists one event, discarding the oldest when full.
func (m *MemoryStore) Save(ctx context.Context, event *Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.events) >= m.maxEntries {
		drop := len(m.events) - m.maxEntries + 1
		m.events = append(m.events[:0], m.events[drop:]...)
	}
	m.events = append(m.events, event)
	return nil
}

// Recent returns up to limit events, newest first.
func (m *MemoryStore) Recent(ctx context.Context, limit int) ([]*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.events) {
		limit = len(m.events)
	}

	out := make([]*Event, 0, limit)
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.events[i])
	}
	return out, nil
}

// Prune deletes events older than the cutoff.
func (m *MemoryStore) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.events[:0]
	deleted := 0
	for _, event := range m.events {
		if event.Time.Before(olderThan) {
			deleted++
			continue
		}
		kept = append(kept, event)
	}
	m.events = kept
	return deleted, nil
}

// Size returns the number of stored events.
func (m *MemoryStore) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error {
	return nil
}
