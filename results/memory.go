package results

import (
	"context"
	"sync"

	"github.com/hupe1980/answermesh/core"
)

// InMemoryStore is a volatile ResultStore keeping sets in a process local
// map. It is safe for concurrent access. Sets are copied on the way in and
// out to prevent external mutation of stored state.
type InMemoryStore struct {
	mu    sync.RWMutex
	sets  map[string]core.ResultSet
	saves int
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sets: make(map[string]core.ResultSet)}
}

// Save replaces the set stored for identity.
func (s *InMemoryStore) Save(_ context.Context, identity string, set core.ResultSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[identity] = clone(identity, set)
	s.saves++
	return nil
}

// Load returns a copy of the set stored for identity.
func (s *InMemoryStore) Load(_ context.Context, identity string) (core.ResultSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.sets[identity]
	if !ok {
		return core.ResultSet{}, core.ErrResultSetNotFound
	}
	return clone(identity, set), nil
}

// Saves returns how many times Save was called.
func (s *InMemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

func clone(identity string, set core.ResultSet) core.ResultSet {
	out := core.ResultSet{Identity: identity, Results: make([]core.TaskResult, len(set.Results))}
	copy(out.Results, set.Results)
	return out
}
