// Package settings persists workspace-scoped configuration values.
//
// A value is a list of strings stored and replaced wholesale under a key; there
// are no partial updates.
package settings

import (
	"context"
	"slices"
	"sync"
)

// Store is the persistence boundary used by the tutorial registry.
// Consumers should depend on this interface so tests can use Memory.
type Store interface {
	// Load returns the values stored under key, or nil if the key is unset.
	Load(ctx context.Context, key string) ([]string, error)
	// Save replaces the values stored under key.
	Save(ctx context.Context, key string, values []string) error
}

// Verify implementations satisfy Store at compile time.
var (
	_ Store = (*DB)(nil)
	_ Store = (*Memory)(nil)
)

// Memory is an in-process Store.
type Memory struct {
	mu     sync.Mutex
	values map[string][]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]string)}
}

func (m *Memory) Load(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.values[key]), nil
}

func (m *Memory) Save(_ context.Context, key string, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = slices.Clone(values)
	return nil
}
