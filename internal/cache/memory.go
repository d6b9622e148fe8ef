package cache

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is an in-process store used for tests and single-shot CLI runs
// that do not want persistence.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Kind]map[string]*Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[Kind]map[string]*Entry),
	}
}

// Get returns the entry for fingerprint within kind.
func (s *MemoryStore) Get(_ context.Context, fingerprint string, kind Kind) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[kind][fingerprint]
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

// Put stores the payload, overwriting any prior entry for the key.
func (s *MemoryStore) Put(_ context.Context, fingerprint string, kind Kind, payload json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entries[kind] == nil {
		s.entries[kind] = make(map[string]*Entry)
	}
	s.entries[kind][fingerprint] = newEntry(fingerprint, kind, payload)
	return nil
}

// Clear drops the whole kind partition.
func (s *MemoryStore) Clear(_ context.Context, kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, kind)
	return nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}
