package oracle

import (
	"context"

	"github.com/aretw0/cognito/pkg/ports"
)

// Func adapts a plain function to ports.ReasoningOracle.
type Func func(ctx context.Context, prompt ports.Prompt) (ports.Completion, error)

// Invoke calls f.
func (f Func) Invoke(ctx context.Context, prompt ports.Prompt) (ports.Completion, error) {
	return f(ctx, prompt)
}
