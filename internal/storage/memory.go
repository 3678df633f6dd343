package storage

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is an in-memory DocumentStore for tests. It round-trips the
// document through JSON so tests exercise the same serialization the file
// store uses.
type MemoryStore struct {
	// SaveErr, when set, is returned from every Save call.
	SaveErr error

	mu   sync.Mutex
	data []byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SeedRaw replaces the stored document with raw bytes, bypassing
// serialization. Useful for corrupt or legacy document fixtures.
func (s *MemoryStore) SeedRaw(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
}

// Load mirrors FileStore semantics: empty or undecodable content leaves the
// value untouched.
func (s *MemoryStore) Load(_ context.Context, document any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.data) == 0 {
		return nil
	}
	if err := json.Unmarshal(s.data, document); err != nil {
		return nil
	}
	return nil
}

// Save replaces the stored document.
func (s *MemoryStore) Save(_ context.Context, document any) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}

	data, err := json.Marshal(document)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	return nil
}
