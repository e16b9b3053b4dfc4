package reputation

import (
	"context"
	"maps"
	"sync"

	"github.com/aretw0/cognito/pkg/domain"
)

// Memory is a mutex-guarded in-process reputation store.
type Memory struct {
	mu     sync.Mutex
	scores map[domain.Specialist]float64
}

// NewMemory creates a store where every specialist starts at Neutral.
func NewMemory() *Memory {
	return &Memory{scores: make(map[domain.Specialist]float64)}
}

// Score returns the current score, Neutral when never updated.
func (m *Memory) Score(_ context.Context, s domain.Specialist) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(s), nil
}

// Update applies fn under the store lock.
func (m *Memory) Update(_ context.Context, s domain.Specialist, fn func(float64) float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := fn(m.get(s))
	m.scores[s] = next
	return next, nil
}

// Snapshot returns a copy of every score, including untouched specialists at Neutral.
func (m *Memory) Snapshot(_ context.Context) (map[domain.Specialist]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[domain.Specialist]float64, len(domain.Specialists()))
	for _, s := range domain.Specialists() {
		out[s] = Neutral
	}
	maps.Copy(out, m.scores)
	return out, nil
}

func (m *Memory) get(s domain.Specialist) float64 {
	if v, ok := m.scores[s]; ok {
		return v
	}
	return Neutral
}
