// Package memory provides in-process adapters for every persistence port.
// They are the defaults of an embedded service and the doubles of the test-suite.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/cognito/pkg/domain"
)

// Store implements ports.StateStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.State
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.State),
	}
}

// Save persists a deep copy of the state, so later changes by the caller do not leak in.
func (s *Store) Save(_ context.Context, walkID string, state *domain.State) error {
	copied := state.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[walkID] = copied
	return nil
}

// Load retrieves a copy of the state.
func (s *Store) Load(_ context.Context, walkID string) (*domain.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[walkID]
	if !ok {
		return nil, domain.ErrWalkNotFound
	}
	return state.Clone(), nil
}

// Delete removes the state.
func (s *Store) Delete(_ context.Context, walkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, walkID)
	return nil
}

// List returns the stored walk IDs, sorted.
func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
