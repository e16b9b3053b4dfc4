package mcp

import (
	"context"
	"testing"

	"github.com/aretw0/cognito"
	"github.com/aretw0/cognito/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc, err := cognito.New()
	require.NoError(t, err)
	return NewServer(svc, nil)
}

func TestAskAndResume(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	ans, err := s.handleAsk(ctx, mcp.CallToolRequest{}, AskArgs{Query: "Please delete the database record 42"})
	require.NoError(t, err)
	require.NotNil(t, ans.PendingApproval)
	assert.Equal(t, "delete_database_record", ans.PendingApproval.ToolCall.Name)

	pending, err := s.handlePending(ctx, mcp.CallToolRequest{}, struct{}{})
	require.NoError(t, err)
	assert.Equal(t, []string{ans.WalkID}, pending.Walks)

	final, err := s.handleResume(ctx, mcp.CallToolRequest{}, ResumeArgs{WalkID: ans.WalkID, Decision: "REJECT"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTerminated, final.Status)
	assert.Contains(t, final.FinalAnswer, "declined")

	pending, err = s.handlePending(ctx, mcp.CallToolRequest{}, struct{}{})
	require.NoError(t, err)
	assert.Empty(t, pending.Walks)
}

func TestAsk_TargetRoute(t *testing.T) {
	s := newTestServer(t)

	ans, err := s.handleAsk(context.Background(), mcp.CallToolRequest{}, AskArgs{
		Query:       "How do I structure a contract?",
		TargetRoute: string(domain.Legal),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Legal, ans.SpecialistUsed)
	assert.Equal(t, domain.StatusTerminated, ans.Status)
}

func TestResume_Errors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleResume(ctx, mcp.CallToolRequest{}, ResumeArgs{Decision: "APPROVE"})
	assert.Error(t, err)

	_, err = s.handleResume(ctx, mcp.CallToolRequest{}, ResumeArgs{WalkID: "nope", Decision: "APPROVE"})
	assert.ErrorIs(t, err, domain.ErrWalkNotFound)

	_, err = s.handleAsk(ctx, mcp.CallToolRequest{}, AskArgs{Query: ""})
	assert.Error(t, err)
}
