package oracle

import (
	"context"
	"fmt"

	"github.com/aretw0/cognito/pkg/ports"
	"golang.org/x/time/rate"
)

type rateLimited struct {
	next    ports.ReasoningOracle
	limiter *rate.Limiter
}

// RateLimited waits on limiter before every call to next.
func RateLimited(next ports.ReasoningOracle, limiter *rate.Limiter) ports.ReasoningOracle {
	return &rateLimited{next: next, limiter: limiter}
}

func (r *rateLimited) Invoke(ctx context.Context, prompt ports.Prompt) (ports.Completion, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return ports.Completion{}, fmt.Errorf("oracle rate limit: %w", err)
	}
	return r.next.Invoke(ctx, prompt)
}
