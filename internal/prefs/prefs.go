// Package prefs persists display preferences per origin.
package prefs

import (
	"context"
	"sync"

	"daily-app/internal/domain"
)

// Store is a durable key-value store scoped to one origin. Get returns ""
// for keys that were never set or have been removed.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// MemoryStore keeps preferences in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
	writes int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	if err := domain.ValidatePreference(key); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	if err := domain.ValidatePreference(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.writes++
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	if err := domain.ValidatePreference(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	m.writes++
	return nil
}

// Writes returns how many Set and Remove calls succeeded.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Has reports whether key currently holds a value.
func (m *MemoryStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	return ok
}
