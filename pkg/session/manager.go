package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/cognito/internal/logging"
	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed holder can block a walk.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates access to suspended walks, ensuring safe concurrent operations.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.StateStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the lease of the distributed lock.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager over the given store.
func NewManager(store ports.StateStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu, and call release(walkID) after unlocking.
func (m *Manager) acquire(walkID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[walkID]
	if !exists {
		entry = &lockEntry{}
		m.locks[walkID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(walkID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[walkID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, walkID)
	}
}

// Park stores a suspended walk under its own ID.
func (m *Manager) Park(ctx context.Context, state *domain.State) error {
	if !state.Suspended() {
		return fmt.Errorf("park walk %s: %w", state.WalkID, domain.ErrNotSuspended)
	}
	return m.Save(ctx, state.WalkID, state)
}

// Claim loads a parked walk and hands it to fn under the walk lock. When fn returns
// a walk that is still suspended it is parked again; otherwise the entry is removed.
// The returned state is whatever fn produced.
func (m *Manager) Claim(ctx context.Context, walkID string, fn func(context.Context, *domain.State) (*domain.State, error)) (*domain.State, error) {
	var out *domain.State
	err := m.WithLock(ctx, walkID, func(ctx context.Context) error {
		parked, err := m.store.Load(ctx, walkID)
		if err != nil {
			return err
		}
		next, fnErr := fn(ctx, parked)
		out = next

		switch {
		case next == nil:
		case next.Suspended():
			if err := m.store.Save(ctx, walkID, next); err != nil {
				return errors.Join(fnErr, fmt.Errorf("re-park walk: %w", err))
			}
		default:
			if err := m.store.Delete(ctx, walkID); err != nil {
				m.logger.Warn("failed to remove resumed walk", "walk_id", walkID, "err", err)
			}
		}
		return fnErr
	})
	return out, err
}

// Load retrieves a parked walk.
func (m *Manager) Load(ctx context.Context, walkID string) (*domain.State, error) {
	var state *domain.State
	err := m.WithLock(ctx, walkID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, walkID)
		return err
	})
	return state, err
}

// Save persists the walk state.
func (m *Manager) Save(ctx context.Context, walkID string, state *domain.State) error {
	return m.WithLock(ctx, walkID, func(ctx context.Context) error {
		return m.store.Save(ctx, walkID, state)
	})
}

// Delete removes the walk from the store.
func (m *Manager) Delete(ctx context.Context, walkID string) error {
	return m.WithLock(ctx, walkID, func(ctx context.Context) error {
		return m.store.Delete(ctx, walkID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying state store.
func (m *Manager) Store() ports.StateStore {
	return m.store
}

// WithLock executes a function while holding the lock for the walk.
func (m *Manager) WithLock(ctx context.Context, walkID string, fn func(context.Context) error) error {
	entry := m.acquire(walkID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(walkID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, walkID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"walk_id", walkID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
