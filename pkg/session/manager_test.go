package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/ports"
	"github.com/aretw0/cognito/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	data map[string]*domain.State
	mu   sync.Mutex
}

func (s *SlowStore) Save(_ context.Context, walkID string, state *domain.State) error {
	time.Sleep(time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]*domain.State)
	}
	s.data[walkID] = state.Clone()
	return nil
}

func (s *SlowStore) Load(_ context.Context, walkID string) (*domain.State, error) {
	time.Sleep(time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.data[walkID]; ok {
		return state.Clone(), nil
	}
	return nil, domain.ErrWalkNotFound
}

func (s *SlowStore) Delete(_ context.Context, walkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, walkID)
	return nil
}

func (s *SlowStore) List(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func parked(id string) *domain.State {
	s := domain.NewState(id, "user", "delete record 7")
	s.CurrentNode = "tool_manager"
	s.PendingApproval = &domain.PendingApproval{
		ActionType: domain.ActionTypeCriticalApproval,
		ToolCall:   domain.ToolCall{ID: "c1", Name: "delete_database_record"},
		ResumeNode: "tool_manager",
	}
	return s
}

func TestManager_ClaimSerializesReadModifyWrite(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"
	require.NoError(t, manager.Park(ctx, parked(id)))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Claim(ctx, id, func(_ context.Context, s *domain.State) (*domain.State, error) {
				s.Steps++
				return s, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 10, s.Steps, "lost update")
}

func TestManager_ClaimRemovesFinishedWalk(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	require.NoError(t, manager.Park(ctx, parked("w1")))

	out, err := manager.Claim(ctx, "w1", func(_ context.Context, s *domain.State) (*domain.State, error) {
		s.PendingApproval = nil
		s.Status = domain.StatusTerminated
		return s, nil
	})
	require.NoError(t, err)
	assert.True(t, out.Terminated())

	_, err = manager.Load(ctx, "w1")
	assert.ErrorIs(t, err, domain.ErrWalkNotFound)
}

func TestManager_ClaimKeepsWalkOnError(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	ctx := context.Background()
	require.NoError(t, manager.Park(ctx, parked("w1")))

	_, err := manager.Claim(ctx, "w1", func(_ context.Context, s *domain.State) (*domain.State, error) {
		return s, domain.ErrUnknownDecision
	})
	assert.ErrorIs(t, err, domain.ErrUnknownDecision)

	ids, err := manager.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"w1"}, ids)
}

func TestManager_ParkRejectsRunningWalk(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	err := manager.Park(context.Background(), domain.NewState("w1", "", "hi"))
	assert.ErrorIs(t, err, domain.ErrNotSuspended)
}

func TestManager_ClaimMissingWalk(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	called := false
	_, err := manager.Claim(context.Background(), "ghost", func(_ context.Context, s *domain.State) (*domain.State, error) {
		called = true
		return s, nil
	})
	assert.ErrorIs(t, err, domain.ErrWalkNotFound)
	assert.False(t, called)
}

type countingLocker struct {
	mu       sync.Mutex
	locks    int
	unlocks  int
	lastTTL  time.Duration
	failNext bool
}

func (l *countingLocker) Lock(_ context.Context, _ string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failNext {
		return nil, errors.New("lease held elsewhere")
	}
	l.locks++
	l.lastTTL = ttl
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocks++
		return nil
	}, nil
}

func TestManager_DistributedLock(t *testing.T) {
	locker := &countingLocker{}
	manager := session.NewManager(&SlowStore{}, session.WithLocker(locker), session.WithLockTTL(5*time.Second))
	ctx := context.Background()

	require.NoError(t, manager.Park(ctx, parked("w1")))
	_, err := manager.Load(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, 2, locker.locks)
	assert.Equal(t, 2, locker.unlocks)
	assert.Equal(t, 5*time.Second, locker.lastTTL)

	locker.failNext = true
	_, err = manager.Load(ctx, "w1")
	assert.ErrorContains(t, err, "distributed lock")
}
