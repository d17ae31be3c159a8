package cache

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// MemoryBackend is an in-process Backend. Entries expire lazily on read.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// Get retrieves a copy of the stored value. Returns (nil, false, nil) on miss
// or expiry.
func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := ValidateKey(key); err != nil {
		return nil, false, err
	}

	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	if m.now().After(entry.expiresAt) {
		// Expired - clean up lazily
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && cur == entry {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}

	return bytes.Clone(entry.value), true, nil
}

// Set stores a value with the given TTL. TTL<=0 is a no-op (no caching).
func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	m.entries[key] = &memoryEntry{
		value:     stored,
		expiresAt: m.now().Add(ttl),
	}
	m.mu.Unlock()

	return nil
}

// Delete removes a value. Idempotent - no error on miss.
func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including expired ones not yet
// evicted.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Ensure MemoryBackend implements Backend
var _ Backend = (*MemoryBackend)(nil)
