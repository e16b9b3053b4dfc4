package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/cognito/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	walkID := "contract-test-walk-" + time.Now().Format("20060102150405")

	suspended := func(id string) *domain.State {
		s := domain.NewState(id, "user-1", "please delete record 7")
		s.CurrentNode = "tool_manager"
		s.Status = domain.StatusExecuting
		s.IterationCount = 1
		s.Messages = []domain.Message{
			{Role: domain.RoleUser, Content: "please delete record 7"},
			{Role: domain.RoleAssistant, Kind: domain.KindToolRequest, ToolCall: &domain.ToolCall{ID: "c1", Name: "delete_database_record", Args: map[string]any{"record": "7"}}},
		}
		s.PendingApproval = &domain.PendingApproval{
			ActionType: domain.ActionTypeCriticalApproval,
			ToolCall:   domain.ToolCall{ID: "c1", Name: "delete_database_record", Args: map[string]any{"record": "7"}},
			ResumeNode: "tool_manager",
		}
		return s
	}

	t.Run("Save and Load", func(t *testing.T) {
		state := suspended(walkID)

		err := store.Save(ctx, walkID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, walkID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.CurrentNode, loaded.CurrentNode)
		assert.Equal(t, state.IterationCount, loaded.IterationCount)
		require.NotNil(t, loaded.PendingApproval)
		assert.Equal(t, "delete_database_record", loaded.PendingApproval.ToolCall.Name)
		assert.Len(t, loaded.Messages, 2)
		assert.Equal(t, domain.NeutralReputation, loaded.Reputation[domain.Finance])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+walkID)
		assert.ErrorIs(t, err, domain.ErrWalkNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, walkID, suspended(walkID))
		require.NoError(t, err)

		err = store.Delete(ctx, walkID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, walkID)
		assert.ErrorIs(t, err, domain.ErrWalkNotFound, "Load after Delete should return ErrWalkNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := walkID + "-1"
		id2 := walkID + "-2"
		_ = store.Save(ctx, id1, suspended(id1))
		_ = store.Save(ctx, id2, suspended(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		walks, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, walks, id1)
		assert.Contains(t, walks, id2)
	})
}
