package reputation_test

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/ports"
	"github.com/aretw0/cognito/pkg/reputation"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNudge_Bounds(t *testing.T) {
	for n := 0; n <= 20; n++ {
		up, down := reputation.Neutral, reputation.Neutral
		for i := 0; i < n; i++ {
			up = reputation.Nudge(up, domain.VerdictPass)
			down = reputation.Nudge(down, domain.VerdictFail)
		}
		assert.InDelta(t, math.Min(1.0, 0.5+0.05*float64(n)), up, 1e-9, "after %d PASS", n)
		assert.InDelta(t, math.Max(0.1, 0.5-0.05*float64(n)), down, 1e-9, "after %d FAIL", n)
	}
}

func runStoreSuite(t *testing.T, store ports.ReputationStore) {
	ctx := context.Background()

	score, err := store.Score(ctx, domain.Legal)
	require.NoError(t, err)
	assert.Equal(t, reputation.Neutral, score)

	next, err := store.Update(ctx, domain.Legal, reputation.Nudger(domain.VerdictPass))
	require.NoError(t, err)
	assert.InDelta(t, 0.55, next, 1e-9)

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.55, snap[domain.Legal], 1e-9)
	assert.Equal(t, reputation.Neutral, snap[domain.Health])

	// Concurrent nudges must all land.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, domain.Fitness, reputation.Nudger(domain.VerdictFail))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	score, err = store.Score(ctx, domain.Fitness)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, score, 1e-9)
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, reputation.NewMemory())
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	store := reputation.NewRedis(client, reputation.WithKey("test:reputation"))
	runStoreSuite(t, store)
	assert.True(t, mr.Exists("test:reputation"))
}
