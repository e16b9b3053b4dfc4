package memory_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/cognito/pkg/adapters/memory"
	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, memory.NewStore())
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	s := domain.NewState("w1", "", "hi")
	require.NoError(t, store.Save(ctx, "w1", s))

	s.Messages = append(s.Messages, domain.Message{Content: "late"})
	loaded, err := store.Load(ctx, "w1")
	require.NoError(t, err)
	assert.Empty(t, loaded.Messages)
}

func TestAuditLog_Ring(t *testing.T) {
	log := memory.NewAuditLog(3)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, log.Append(ctx, ports.AuditRecord{WalkID: fmt.Sprintf("w%d", i%2), EventType: fmt.Sprint(i)}))
	}

	records := log.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "2", records[0].EventType)
	assert.Equal(t, "4", records[2].EventType)
	assert.Len(t, log.ForWalk("w0"), 2)
}

func TestSinks(t *testing.T) {
	ctx := context.Background()
	k := memory.NewKnowledge()
	require.NoError(t, k.SaveLesson(ctx, ports.Lesson{WalkID: "w1", Block: "GENERALIZATION: x"}))
	assert.Len(t, k.Lessons(), 1)

	tr := memory.NewTraining()
	require.NoError(t, tr.LogExample(ctx, ports.TrainingExample{WalkID: "w1"}))
	assert.Len(t, tr.Examples(), 1)
}
