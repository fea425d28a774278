package storage

import (
	"context"
	"sync"
)

// HashStore records the hash of the last processed build.
type HashStore interface {
	LastHash(ctx context.Context) (string, error)
	SetLastHash(ctx context.Context, hash string) error
}

// MemoryStore keeps the hash for the lifetime of the process.
type MemoryStore struct {
	mu   sync.RWMutex
	hash string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) LastHash(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hash, nil
}

func (m *MemoryStore) SetLastHash(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hash = hash
	return nil
}
