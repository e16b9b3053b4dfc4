package ports

import (
	"context"

	"github.com/aretw0/cognito/pkg/domain"
)

// StateStore defines the interface for persisting walks suspended on an approval.
// This is what lets a resume arrive on a different request, or a different replica.
type StateStore interface {
	// Save persists the state for a given walk ID.
	Save(ctx context.Context, walkID string, state *domain.State) error

	// Load retrieves the state for a given walk ID.
	// Returns domain.ErrWalkNotFound if the walk does not exist.
	Load(ctx context.Context, walkID string) (*domain.State, error)

	// Delete removes the state for a given walk ID.
	Delete(ctx context.Context, walkID string) error

	// List returns the IDs of every stored walk.
	List(ctx context.Context) ([]string, error)
}
