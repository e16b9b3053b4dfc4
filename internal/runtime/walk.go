package runtime

import (
	"sync"

	"github.com/aretw0/cognito/pkg/domain"
)

// walk guards the state of one running walk. The primary path and the speculative
// merge both write through it, so neither ever observes a half-applied update.
type walk struct {
	mu    sync.Mutex
	state *domain.State
}

func newWalk(s *domain.State) *walk {
	return &walk{state: s.Clone()}
}

func (w *walk) snapshot() *domain.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Clone()
}

// commit applies fn to a copy and swaps it in only when fn succeeds.
func (w *walk) commit(fn func(*domain.State) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	next := w.state.Clone()
	if err := fn(next); err != nil {
		return err
	}
	w.state = next
	return nil
}

func (w *walk) mergeSpeculative(results map[string]domain.SpeculativeResult) *domain.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	next := w.state.Clone()
	next.MergeSpeculative(results)
	w.state = next
	return next.Clone()
}
