package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/cognito/internal/runtime"
	"github.com/aretw0/cognito/pkg/domain"
)

// toolNode executes the pending tool call and counts how often it actually ran.
type toolNode struct {
	runs *int
}

func (toolNode) Name() string { return "tools" }

func (toolNode) ProposedAction(s *domain.State) *domain.ToolCall { return s.PendingToolCall }

func (n toolNode) Run(_ context.Context, s *domain.State) (domain.Delta, error) {
	*n.runs++
	return domain.Delta{
		AppendMessages:       []domain.Message{{Role: domain.RoleTool, Kind: domain.KindToolResult, Content: "TOOL RESULT: sent"}},
		ClearPendingToolCall: true,
	}, nil
}

func approvalGraph(runs *int) *runtime.Graph {
	propose := runtime.Func("propose", func(_ context.Context, s *domain.State) (domain.Delta, error) {
		if s.CountKind(domain.KindRejection) > 0 {
			return domain.Delta{
				Status:         domain.Ptr(domain.StatusExecuting),
				AppendMessages: []domain.Message{{Role: domain.RoleAssistant, Content: "declined"}},
			}, nil
		}
		call := domain.ToolCall{ID: "call-1", Name: "send_email", Args: map[string]any{"to": "ceo"}}
		return domain.Delta{
			Status:          domain.Ptr(domain.StatusExecuting),
			PendingToolCall: &call,
			AppendMessages:  []domain.Message{{Role: domain.RoleAssistant, ToolCall: &call}},
		}, nil
	})
	replan := runtime.Func("replan", func(context.Context, *domain.State) (domain.Delta, error) {
		return domain.Delta{}, nil
	})
	return runtime.NewGraph().
		AddNode(propose).
		AddNode(toolNode{runs: runs}).
		AddNode(replan).
		AddNode(say("synthesize")).
		AddConditionalEdge("propose", func(s *domain.State) string {
			if s.PendingToolCall != nil {
				return "tools"
			}
			return "done"
		}, map[string]runtime.Route{"tools": {To: "tools"}, "done": {To: runtime.End}}, "synthesize").
		AddEdge("tools", runtime.End).
		AddConditionalEdge("replan", func(*domain.State) string { return "again" },
			map[string]runtime.Route{"again": {To: "propose", Retry: true}}, "synthesize").
		AddEdge("synthesize", runtime.End).
		SetEntry("propose").
		SetExhausted("synthesize").
		SetReplan("replan")
}

func suspendedWalk(t *testing.T, engine *runtime.Engine) *domain.State {
	t.Helper()
	ctx := context.Background()
	state, err := engine.Start(ctx, runtime.Request{RawInput: "email the ceo"})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	suspended, outcome, err := engine.Run(ctx, state)
	if err != nil || outcome != runtime.OutcomeSuspended {
		t.Fatalf("expected suspension, got %s, %v", outcome, err)
	}
	return suspended
}

func TestEngine_CriticalActionSuspends(t *testing.T) {
	runs := 0
	engine, err := runtime.NewEngine(approvalGraph(&runs), runtime.WithCriticalTools("send_email"))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	s := suspendedWalk(t, engine)

	if runs != 0 {
		t.Fatal("critical tool ran before approval")
	}
	p := s.PendingApproval
	if p == nil || p.ActionType != domain.ActionTypeCriticalApproval {
		t.Fatalf("expected a critical approval payload, got %+v", p)
	}
	if p.ToolCall.Name != "send_email" || p.Args["to"] != "ceo" || p.ResumeNode != "tools" || p.RiskRationale == "" {
		t.Errorf("unexpected payload: %+v", p)
	}
	if s.Status != domain.StatusExecuting {
		t.Errorf("suspension changed the status to %s", s.Status)
	}
	if s.CurrentNode != "tools" {
		t.Errorf("expected to be parked at tools, got %q", s.CurrentNode)
	}

	if _, _, err := engine.Run(context.Background(), s); !errors.Is(err, domain.ErrAlreadySuspended) {
		t.Errorf("expected ErrAlreadySuspended, got %v", err)
	}
}

func TestEngine_NonCriticalToolRunsFreely(t *testing.T) {
	runs := 0
	engine, _ := runtime.NewEngine(approvalGraph(&runs))
	state, _ := engine.Start(context.Background(), runtime.Request{})

	_, outcome, err := engine.Run(context.Background(), state)
	if err != nil || outcome != runtime.OutcomeCompleted {
		t.Fatalf("Run = %s, %v", outcome, err)
	}
	if runs != 1 {
		t.Errorf("expected one tool run, got %d", runs)
	}
}

func TestEngine_ResumeApprove(t *testing.T) {
	runs := 0
	var toolReturns int
	hooks := domain.LifecycleHooks{
		OnToolReturn: func(context.Context, *domain.ToolEvent) { toolReturns++ },
	}
	engine, _ := runtime.NewEngine(approvalGraph(&runs), runtime.WithCriticalTools("send_email"), runtime.WithLifecycleHooks(hooks))
	s := suspendedWalk(t, engine)

	final, outcome, err := engine.Resume(context.Background(), s, " approve ")
	if err != nil || outcome != runtime.OutcomeCompleted {
		t.Fatalf("Resume = %s, %v", outcome, err)
	}
	if runs != 1 || toolReturns != 1 {
		t.Errorf("expected exactly one tool run, got runs=%d returns=%d", runs, toolReturns)
	}
	if final.PendingApproval != nil || final.PendingToolCall != nil || final.ApprovedCallID != "" {
		t.Errorf("approval state not cleared: %+v", final)
	}
	if final.FinalAnswer() != "TOOL RESULT: sent" {
		t.Errorf("unexpected last message %q", final.FinalAnswer())
	}
	if s.PendingApproval == nil {
		t.Error("Resume mutated its input")
	}
}

func TestEngine_ResumeReject(t *testing.T) {
	runs := 0
	engine, _ := runtime.NewEngine(approvalGraph(&runs), runtime.WithCriticalTools("send_email"))
	s := suspendedWalk(t, engine)
	before := s.IterationCount

	final, outcome, err := engine.Resume(context.Background(), s, "REJECT")
	if err != nil || outcome != runtime.OutcomeCompleted {
		t.Fatalf("Resume = %s, %v", outcome, err)
	}
	if runs != 0 {
		t.Error("rejected tool was executed")
	}
	if got := final.CountKind(domain.KindRejection); got != 1 {
		t.Errorf("expected one rejection record, got %d", got)
	}
	if final.IterationCount != before+1 {
		t.Errorf("expected iteration %d, got %d", before+1, final.IterationCount)
	}
	if final.FinalAnswer() != "declined" {
		t.Errorf("expected replanned answer, got %q", final.FinalAnswer())
	}
}

func TestEngine_RejectAtCeilingSynthesizes(t *testing.T) {
	runs := 0
	engine, _ := runtime.NewEngine(approvalGraph(&runs), runtime.WithCriticalTools("send_email"), runtime.WithMaxIterations(1))
	s := suspendedWalk(t, engine)
	s.IterationCount = 1

	final, _, err := engine.Resume(context.Background(), s, "reject")
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if final.IterationCount != 1 {
		t.Errorf("ceiling exceeded: %d", final.IterationCount)
	}
	if final.FinalAnswer() != "synthesize" {
		t.Errorf("expected synthesis, got %q", final.FinalAnswer())
	}
}

func TestEngine_ResumeErrors(t *testing.T) {
	runs := 0
	engine, _ := runtime.NewEngine(approvalGraph(&runs), runtime.WithCriticalTools("send_email"))
	s := suspendedWalk(t, engine)

	same, outcome, err := engine.Resume(context.Background(), s, "maybe")
	if !errors.Is(err, domain.ErrUnknownDecision) {
		t.Fatalf("expected ErrUnknownDecision, got %v", err)
	}
	if outcome != runtime.OutcomeSuspended || !same.Suspended() {
		t.Error("unknown decision released the walk")
	}

	fresh, _ := engine.Start(context.Background(), runtime.Request{})
	if _, _, err := engine.Resume(context.Background(), fresh, "approve"); !errors.Is(err, domain.ErrNotSuspended) {
		t.Errorf("expected ErrNotSuspended, got %v", err)
	}
}
