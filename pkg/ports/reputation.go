package ports

import (
	"context"

	"github.com/aretw0/cognito/pkg/domain"
)

// ReputationStore holds the process-wide specialist scores.
// Update must apply fn atomically: concurrent walks never lose an update.
type ReputationStore interface {
	Score(ctx context.Context, s domain.Specialist) (float64, error)
	Update(ctx context.Context, s domain.Specialist, fn func(current float64) float64) (float64, error)
	Snapshot(ctx context.Context) (map[domain.Specialist]float64, error)
}
