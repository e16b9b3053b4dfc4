package cognito_test

import (
	"context"
	"crypto/rand"
	"strings"
	"testing"

	"github.com/aretw0/cognito"
	"github.com/aretw0/cognito/internal/runtime"
	"github.com/aretw0/cognito/pkg/adapters/memory"
	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/observability"
	"github.com/aretw0/cognito/pkg/persistence/middleware"
	"github.com/aretw0/cognito/pkg/sanitize"
	"github.com/aretw0/cognito/pkg/trust"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, opts ...cognito.Option) *cognito.Service {
	t.Helper()
	svc, err := cognito.New(opts...)
	require.NoError(t, err)
	return svc
}

func TestService_AskRegulated(t *testing.T) {
	svc := newService(t)

	ans, err := svc.Ask(context.Background(), "Should I invest in tax-free bonds?", "user-1")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusTerminated, ans.Status)
	assert.Equal(t, domain.Finance, ans.SpecialistUsed)
	assert.Equal(t, 0.95, ans.RiskScore)
	assert.True(t, strings.HasPrefix(ans.FinalAnswer, domain.RiskBanner))
	assert.Contains(t, ans.FinalAnswer, cognito.DevDID)
	assert.Len(t, ans.AuditHash, 64)
	assert.False(t, ans.Suspended())
}

func TestService_CapitalGainsScenario(t *testing.T) {
	svc := newService(t)

	ans, err := svc.Ask(context.Background(), "I need the latest data on capital gains tax and investment data.", "user-1")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusTerminated, ans.Status)
	assert.Equal(t, domain.Finance, ans.SpecialistUsed)
	assert.Equal(t, 0.95, ans.RiskScore)
	assert.Equal(t, 1, strings.Count(ans.FinalAnswer, domain.RiskBanner))
	assert.Empty(t, ans.Caveat, "critique should pass without revisions")
	assert.Equal(t, 0, ans.Iterations)
	assert.NotEqual(t, trust.SentinelAuditHash, ans.AuditHash)
	assert.Len(t, ans.AuditHash, 64)
	assert.False(t, ans.Suspended())
}

func TestService_RejectFlow(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	ans, err := svc.Ask(ctx, "Please delete the database record 42", "ops")
	require.NoError(t, err)
	require.True(t, ans.Suspended())
	assert.Empty(t, ans.FinalAnswer)
	assert.Equal(t, "delete_database_record", ans.PendingApproval.ToolCall.Name)

	pending, err := svc.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{ans.WalkID}, pending)

	_, err = svc.Resume(ctx, ans.WalkID, "maybe")
	require.ErrorIs(t, err, domain.ErrUnknownDecision)
	parked, err := svc.Walk(ctx, ans.WalkID)
	require.NoError(t, err)
	assert.True(t, parked.Suspended())
	assert.Equal(t, 0, parked.CountKind(domain.KindRejection))

	final, err := svc.Resume(ctx, ans.WalkID, "reject")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTerminated, final.Status)
	assert.Equal(t, ans.Iterations+1, final.Iterations)
	assert.Contains(t, final.FinalAnswer, "declined")

	_, err = svc.Walk(ctx, ans.WalkID)
	assert.ErrorIs(t, err, domain.ErrWalkNotFound)
	_, err = svc.Resume(ctx, ans.WalkID, "APPROVE")
	assert.ErrorIs(t, err, domain.ErrWalkNotFound)
}

func TestService_ApproveThroughSealedRedactedStore(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	seal, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
	require.NoError(t, err)

	backing := memory.NewStore()
	store := middleware.Chain(backing, middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns), seal)
	svc := newService(t, cognito.WithStateStore(store))
	ctx := context.Background()

	ans, err := svc.Ask(ctx, "Send an email to ops@example.com about the outage", "")
	require.NoError(t, err)
	require.True(t, ans.Suspended())

	raw, err := backing.Load(ctx, ans.WalkID)
	require.NoError(t, err)
	assert.NotContains(t, raw.RawInput, "ops@example.com")
	assert.Nil(t, raw.PendingApproval)

	final, err := svc.Resume(ctx, ans.WalkID, "APPROVE")
	require.NoError(t, err)
	assert.Contains(t, final.FinalAnswer, "email queued for ops@example.com")
}

func TestService_RejectsBadInput(t *testing.T) {
	svc := newService(t, cognito.WithMaxInputSize(16))

	_, err := svc.Ask(context.Background(), strings.Repeat("x", 17), "")
	assert.ErrorIs(t, err, sanitize.ErrInputTooLarge)

	_, err = svc.Ask(context.Background(), "\x00\x07", "")
	assert.ErrorIs(t, err, sanitize.ErrEmptyInput)
}

func TestService_AuditAndMetrics(t *testing.T) {
	audit := memory.NewAuditLog(128)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	svc := newService(t, cognito.WithAuditSink(audit), cognito.WithMetrics(metrics))
	ctx := context.Background()

	done, err := svc.Ask(ctx, "What is the capital of France?", "")
	require.NoError(t, err)
	_, err = svc.Ask(ctx, "Send an email to ops@example.com", "")
	require.NoError(t, err)

	var events []string
	for _, r := range audit.ForWalk(done.WalkID) {
		events = append(events, r.EventType)
	}
	assert.Equal(t, runtime.EventWalkStarted, events[0])
	assert.Contains(t, events, runtime.EventTransition)
	assert.Contains(t, events, runtime.EventWalkCompleted)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Walks.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Walks.WithLabelValues("suspended")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Suspensions.WithLabelValues("send_email")))
}

func TestService_Diagram(t *testing.T) {
	svc := newService(t, cognito.WithSpeculation(false, 0))
	out := svc.Diagram(nil)

	assert.Contains(t, out, "decode((\"decode\"))")
	assert.Contains(t, out, "tool_manager[[\"tool_manager\"]]")
	assert.Contains(t, out, "synthesize{{\"synthesize\"}}")
	assert.NotContains(t, out, "classDef")
}

func TestService_RetryCeilingIsConfigurable(t *testing.T) {
	svc := newService(t, cognito.WithMaxIterations(1))
	ans, err := svc.Ask(context.Background(), "Please delete the database record 7", "")
	require.NoError(t, err)
	require.True(t, ans.Suspended())

	final, err := svc.Resume(context.Background(), ans.WalkID, "REJECT")
	require.NoError(t, err)
	assert.Equal(t, 1, final.Iterations)
	assert.Contains(t, final.FinalAnswer, "declined")
}
