package ports

import (
	"context"

	"github.com/aretw0/cognito/pkg/domain"
)

// ToolInvoker runs named tools.
// An unknown name yields a textual error result, not a Go error.
type ToolInvoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) (string, error)
	Tools() []domain.Tool
}

// Signer signs the canonical answer string of a walk.
type Signer interface {
	Sign(ctx context.Context, canonical string) (string, error)
	// Identity is the decentralized identifier placed in the trust receipt.
	Identity() string
}
