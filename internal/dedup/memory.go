package dedup

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	eventID   string
	expiresAt time.Time
}

// MemoryIndex is an in-process dedup index guarded by a mutex. It is used by
// tests and single-instance deployments without Valkey.
type MemoryIndex struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryIndex creates an empty in-memory dedup index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]entry), now: time.Now}
}

// Claim stores eventID under key unless a live entry already holds it
func (m *MemoryIndex) Claim(_ context.Context, key, eventID string, ttl time.Duration) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.entries[key]; ok && now.Before(e.expiresAt) {
		return e.eventID, false, nil
	}
	m.entries[key] = entry{eventID: eventID, expiresAt: now.Add(ttl)}
	return eventID, true, nil
}

// Release removes key
func (m *MemoryIndex) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
