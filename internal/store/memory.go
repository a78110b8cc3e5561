package store

import (
	"context"
	"sync"
)

// MemoryStore keeps every collection in process memory. It backs unit tests
// and dev mode, where losing state on restart is fine.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string][]Record)}
}

func (m *MemoryStore) Find(_ context.Context, collection string, filter Filter) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Record, 0)
	for _, rec := range m.collections[collection] {
		if Matches(rec, filter) {
			result = append(result, Clone(rec))
		}
	}
	return result, nil
}

func (m *MemoryStore) FindOne(_ context.Context, collection string, filter Filter) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.collections[collection] {
		if Matches(rec, filter) {
			return Clone(rec), nil
		}
	}
	return nil, ErrNoRecord
}

func (m *MemoryStore) InsertOne(_ context.Context, collection string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.collections[collection] = append(m.collections[collection], Clone(rec))
	return nil
}

func (m *MemoryStore) UpdateOne(_ context.Context, collection string, filter Filter, set Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.collections[collection] {
		if Matches(rec, filter) {
			for k, v := range set {
				rec[k] = v
			}
			return nil
		}
	}
	// Matching the real backends: updating nothing is not an error.
	return nil
}

func (m *MemoryStore) DeleteOne(_ context.Context, collection string, filter Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	recs := m.collections[collection]
	for i, rec := range recs {
		if Matches(rec, filter) {
			m.collections[collection] = append(recs[:i:i], recs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MemoryStore) DeleteMany(_ context.Context, collection string, filter Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := make([]Record, 0)
	for _, rec := range m.collections[collection] {
		if !Matches(rec, filter) {
			kept = append(kept, rec)
		}
	}
	m.collections[collection] = kept
	return nil
}

func (m *MemoryStore) Close(_ context.Context) error {
	return nil
}
