package reputation

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aretw0/cognito/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

const defaultKey = "cognito:reputation"

// maxRetries bounds optimistic-transaction retries under contention.
const maxRetries = 32

// ErrContention is returned when an update keeps losing the WATCH race.
var ErrContention = errors.New("reputation update contention")

// Redis keeps scores in a single hash, one field per specialist.
// Updates run inside WATCH/MULTI so a concurrent writer forces a retry instead of a lost update.
type Redis struct {
	client *backend.Client
	key    string
}

// RedisOption configures the Redis store.
type RedisOption func(*Redis)

// WithKey overrides the hash key.
func WithKey(key string) RedisOption {
	return func(r *Redis) { r.key = key }
}

// NewRedis wraps an existing client.
func NewRedis(client *backend.Client, opts ...RedisOption) *Redis {
	r := &Redis{client: client, key: defaultKey}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Score reads one specialist, Neutral when absent.
func (r *Redis) Score(ctx context.Context, s domain.Specialist) (float64, error) {
	v, err := r.client.HGet(ctx, r.key, string(s)).Float64()
	if err == backend.Nil {
		return Neutral, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read reputation: %w", err)
	}
	return v, nil
}

// Update applies fn with compare-and-swap semantics.
func (r *Redis) Update(ctx context.Context, s domain.Specialist, fn func(float64) float64) (float64, error) {
	var next float64
	txf := func(tx *backend.Tx) error {
		current, err := tx.HGet(ctx, r.key, string(s)).Float64()
		if err == backend.Nil {
			current = Neutral
		} else if err != nil {
			return err
		}
		next = fn(current)
		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.HSet(ctx, r.key, string(s), next)
			return nil
		})
		return err
	}

	for i := 0; i < maxRetries; i++ {
		err := r.client.Watch(ctx, txf, r.key)
		if err == nil {
			return next, nil
		}
		if errors.Is(err, backend.TxFailedErr) {
			continue
		}
		return 0, fmt.Errorf("failed to update reputation: %w", err)
	}
	return 0, ErrContention
}

// Snapshot returns every score, including untouched specialists at Neutral.
func (r *Redis) Snapshot(ctx context.Context) (map[domain.Specialist]float64, error) {
	raw, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read reputation: %w", err)
	}
	out := make(map[domain.Specialist]float64, len(domain.Specialists()))
	for _, s := range domain.Specialists() {
		out[s] = Neutral
	}
	for field, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt reputation for %s: %w", field, err)
		}
		out[domain.Specialist(field)] = f
	}
	return out, nil
}
