package index

import (
	"context"
	"sync"
)

// MemoryStore implements Store with maps.
type MemoryStore struct {
	mu   sync.RWMutex
	laws map[string]map[string]struct{} // law id → provision keys
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{laws: make(map[string]map[string]struct{})}
}

func (m *MemoryStore) law(lawID string) map[string]struct{} {
	keys, ok := m.laws[lawID]
	if !ok {
		keys = make(map[string]struct{})
		m.laws[lawID] = keys
	}
	return keys
}

// AddLaw registers a statute.
func (m *MemoryStore) AddLaw(_ context.Context, lawID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.law(lawID)
	return nil
}

// AddProvision stores one key.
func (m *MemoryStore) AddProvision(_ context.Context, lawID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.law(lawID)[key] = struct{}{}
	return nil
}

// AddProvisions stores a batch of keys.
func (m *MemoryStore) AddProvisions(_ context.Context, lawID string, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.law(lawID)
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return nil
}

// HasProvision reports whether key exists in lawID.
func (m *MemoryStore) HasProvision(_ context.Context, lawID, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.laws[lawID][key]
	return ok, nil
}

// HasLaw reports whether lawID is known.
func (m *MemoryStore) HasLaw(_ context.Context, lawID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.laws[lawID]
	return ok, nil
}

// Count returns the number of keys for lawID.
func (m *MemoryStore) Count(_ context.Context, lawID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.laws[lawID]), nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
