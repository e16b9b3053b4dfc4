package middleware_test

import (
	"context"

	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/ports"
)

// MockStore is a simple map-based store for testing middleware.
type MockStore struct {
	data map[string]*domain.State
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*domain.State),
	}
}

func (s *MockStore) Save(_ context.Context, walkID string, state *domain.State) error {
	s.data[walkID] = state
	return nil
}

func (s *MockStore) Load(_ context.Context, walkID string) (*domain.State, error) {
	state, ok := s.data[walkID]
	if !ok {
		return nil, domain.ErrWalkNotFound
	}
	return state, nil
}

func (s *MockStore) Delete(_ context.Context, walkID string) error {
	delete(s.data, walkID)
	return nil
}

func (s *MockStore) List(context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

var _ ports.StateStore = (*MockStore)(nil)
