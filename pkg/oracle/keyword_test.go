package oracle_test

import (
	"context"
	"testing"

	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/oracle"
	"github.com/aretw0/cognito/pkg/ports"
	"github.com/aretw0/cognito/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestKeywordRoute(t *testing.T) {
	tests := map[string]domain.Specialist{
		"I need the latest data on capital gains tax and investment data.": domain.Finance,
		"Can my landlord break the lease contract?":                        domain.Legal,
		"Plan a workout for beginners":                                     domain.Fitness,
		"What are common flu symptoms?":                                    domain.Health,
		"How should a startup price its product?":                          domain.Business,
		"What is the capital of France?":                                   domain.GeneralQA,
	}
	for q, want := range tests {
		assert.Equal(t, want, oracle.KeywordRoute(q), q)
	}
}

func user(q string) []domain.Message {
	return []domain.Message{{Role: domain.RoleUser, Content: q}}
}

func TestKeyword_SpecialistRequestsDomainTool(t *testing.T) {
	k := oracle.NewKeyword()
	c, err := k.Invoke(context.Background(), ports.Prompt{
		Purpose:    ports.PurposeSpecialist,
		Specialist: domain.Finance,
		Messages:   user("latest data on dividends"),
	})
	require.NoError(t, err)
	require.NotNil(t, c.ToolCall)
	assert.Equal(t, registry.ToolFinance, c.ToolCall.Name)
}

func TestKeyword_SpecialistProposesCriticalAction(t *testing.T) {
	k := oracle.NewKeyword()
	c, err := k.Invoke(context.Background(), ports.Prompt{
		Purpose:  ports.PurposeSpecialist,
		Messages: user("Please send an email to bob@example.com about the invoice"),
	})
	require.NoError(t, err)
	require.NotNil(t, c.ToolCall)
	assert.Equal(t, registry.ToolSendEmail, c.ToolCall.Name)
	assert.Equal(t, "bob@example.com", c.ToolCall.Args["to"])
}

func TestKeyword_SpecialistAfterRejectionAnswersPlainly(t *testing.T) {
	k := oracle.NewKeyword()
	history := append(user("delete database record 42"),
		domain.Message{Role: domain.RoleTool, Kind: domain.KindRejection, Content: "rejected"})
	c, err := k.Invoke(context.Background(), ports.Prompt{Purpose: ports.PurposeSpecialist, Messages: history})
	require.NoError(t, err)
	assert.Nil(t, c.ToolCall)
	assert.Contains(t, c.Content, "declined")
}

func TestKeyword_Critique(t *testing.T) {
	k := oracle.NewKeyword()
	ctx := context.Background()

	ok, err := k.Invoke(ctx, ports.Prompt{Purpose: ports.PurposeCritique, Messages: []domain.Message{
		{Role: domain.RoleAssistant, Content: domain.RiskBanner + "answer"},
	}})
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictPass, domain.ClassifyCritique(ok.Content))

	bad, err := k.Invoke(ctx, ports.Prompt{Purpose: ports.PurposeCritique, Messages: []domain.Message{
		{Role: domain.RoleTool, Kind: domain.KindToolError, Content: "TOOL EXECUTION ERROR"},
	}})
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictFail, domain.ClassifyCritique(bad.Content))
}

func TestKeyword_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := oracle.NewKeyword().Invoke(ctx, ports.Prompt{Purpose: ports.PurposeRouting})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimited_PassesThrough(t *testing.T) {
	calls := 0
	inner := oracle.Func(func(context.Context, ports.Prompt) (ports.Completion, error) {
		calls++
		return ports.Completion{Content: "ok"}, nil
	})
	limited := oracle.RateLimited(inner, rate.NewLimiter(rate.Inf, 1))

	c, err := limited.Invoke(context.Background(), ports.Prompt{})
	require.NoError(t, err)
	assert.Equal(t, "ok", c.Content)
	assert.Equal(t, 1, calls)
}

func TestRateLimited_HonorsContext(t *testing.T) {
	inner := oracle.Func(func(context.Context, ports.Prompt) (ports.Completion, error) {
		t.Fatal("inner oracle should not be called")
		return ports.Completion{}, nil
	})
	limiter := rate.NewLimiter(rate.Limit(0.001), 1)
	limiter.Allow()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := oracle.RateLimited(inner, limiter).Invoke(ctx, ports.Prompt{})
	assert.Error(t, err)
}
