package discovery

import (
	"context"
	"sync"
)

// MemoryStore is a process-local DecisionStore
type MemoryStore struct {
	mu   sync.RWMutex
	sets map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sets: make(map[string][]string)}
}

func (s *MemoryStore) LoadIDs(_ context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids, ok := s.sets[key]
	if !ok {
		return nil, nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}

func (s *MemoryStore) SaveIDs(_ context.Context, key string, ids []string) error {
	stored := make([]string, len(ids))
	copy(stored, ids)
	s.mu.Lock()
	s.sets[key] = stored
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, key := range keys {
		delete(s.sets, key)
	}
	s.mu.Unlock()
	return nil
}
