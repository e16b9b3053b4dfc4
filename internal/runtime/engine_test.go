package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aretw0/cognito/internal/runtime"
	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/ports"
)

// say returns a node that appends its own name as an assistant message.
func say(name string) runtime.Node {
	return runtime.Func(name, func(_ context.Context, _ *domain.State) (domain.Delta, error) {
		return domain.Delta{AppendMessages: []domain.Message{{Role: domain.RoleAssistant, Content: name}}}, nil
	})
}

type recordingSink struct {
	mu      sync.Mutex
	records []ports.AuditRecord
}

func (s *recordingSink) Append(_ context.Context, r ports.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func (s *recordingSink) count(eventType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.records {
		if r.EventType == eventType {
			n++
		}
	}
	return n
}

func linearGraph() *runtime.Graph {
	return runtime.NewGraph().
		AddNode(say("a")).
		AddNode(say("b")).
		AddNode(say("c")).
		AddEdge("a", "b").
		AddEdge("b", "c").
		AddEdge("c", runtime.End).
		SetEntry("a").
		SetExhausted("c")
}

func TestEngine_RunsNodesSequentially(t *testing.T) {
	var entered, left []string
	hooks := domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) { entered = append(entered, e.NodeID) },
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) { left = append(left, e.NodeID) },
	}
	sink := &recordingSink{}
	engine, err := runtime.NewEngine(linearGraph(), runtime.WithLifecycleHooks(hooks), runtime.WithAuditSink(sink))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	ctx := context.Background()
	state, err := engine.Start(ctx, runtime.Request{RawInput: "hi"})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if state.WalkID == "" {
		t.Error("expected a generated walk ID")
	}

	final, outcome, err := engine.Run(ctx, state)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if outcome != runtime.OutcomeCompleted {
		t.Fatalf("expected completed, got %s", outcome)
	}
	if final.Status != domain.StatusTerminated || final.CurrentNode != "" {
		t.Errorf("expected terminated walk, got status=%s node=%q", final.Status, final.CurrentNode)
	}

	want := []string{"a", "b", "c"}
	for i, m := range final.Messages {
		if m.Content != want[i] {
			t.Errorf("message %d = %q, want %q", i, m.Content, want[i])
		}
	}
	if len(entered) != 3 || len(left) != 3 || entered[2] != "c" || left[0] != "a" {
		t.Errorf("unexpected hook order: enter=%v leave=%v", entered, left)
	}
	if got := sink.count(runtime.EventTransition); got != 3 {
		t.Errorf("expected 3 transition records, got %d", got)
	}
	if sink.count(runtime.EventWalkStarted) != 1 || sink.count(runtime.EventWalkCompleted) != 1 {
		t.Errorf("missing start/complete records: %+v", sink.records)
	}
}

func TestEngine_StepExecutesOneNode(t *testing.T) {
	engine, err := runtime.NewEngine(linearGraph())
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	ctx := context.Background()
	state, _ := engine.Start(ctx, runtime.Request{RawInput: "hi"})

	next, outcome, err := engine.Step(ctx, state)
	if err != nil || outcome != runtime.OutcomeContinue {
		t.Fatalf("Step = %s, %v", outcome, err)
	}
	if next.CurrentNode != "b" || len(next.Messages) != 1 {
		t.Errorf("expected to be at b with one message, got %q %d", next.CurrentNode, len(next.Messages))
	}
	if len(state.Messages) != 0 {
		t.Error("Step mutated its input")
	}

	for outcome == runtime.OutcomeContinue {
		next, outcome, err = engine.Step(ctx, next)
		if err != nil {
			t.Fatalf("Step failed: %v", err)
		}
	}
	if _, _, err := engine.Step(ctx, next); !errors.Is(err, domain.ErrWalkTerminated) {
		t.Errorf("expected ErrWalkTerminated, got %v", err)
	}
}

func retryGraph(label string) *runtime.Graph {
	return runtime.NewGraph().
		AddNode(say("specialist")).
		AddNode(runtime.Func("critique", func(context.Context, *domain.State) (domain.Delta, error) {
			return domain.Delta{CritiqueReport: domain.Ptr("CRITICAL FAILURE")}, nil
		})).
		AddNode(say("synthesize")).
		AddNode(say("safe")).
		AddEdge("specialist", "critique").
		AddConditionalEdge("critique", func(*domain.State) string { return label },
			map[string]runtime.Route{"retry": {To: "specialist", Retry: true}}, "safe").
		AddEdge("synthesize", runtime.End).
		AddEdge("safe", runtime.End).
		SetEntry("specialist").
		SetExhausted("synthesize")
}

func countVisits(history []string, node string) int {
	n := 0
	for _, h := range history {
		if h == node {
			n++
		}
	}
	return n
}

func TestEngine_RetryCeilingForcesSynthesis(t *testing.T) {
	for _, ceiling := range []int{1, 3, 5} {
		engine, err := runtime.NewEngine(retryGraph("retry"), runtime.WithMaxIterations(ceiling))
		if err != nil {
			t.Fatalf("NewEngine failed: %v", err)
		}
		ctx := context.Background()
		state, _ := engine.Start(ctx, runtime.Request{})
		final, outcome, err := engine.Run(ctx, state)
		if err != nil || outcome != runtime.OutcomeCompleted {
			t.Fatalf("ceiling %d: Run = %s, %v", ceiling, outcome, err)
		}
		if final.IterationCount != ceiling {
			t.Errorf("ceiling %d: iteration count %d", ceiling, final.IterationCount)
		}
		if got := countVisits(final.History, "specialist"); got != ceiling+1 {
			t.Errorf("ceiling %d: specialist ran %d times", ceiling, got)
		}
		if final.FinalAnswer() != "synthesize" {
			t.Errorf("ceiling %d: expected synthesis last, got %q", ceiling, final.FinalAnswer())
		}
	}
}

func TestEngine_UnknownRouteFallsBack(t *testing.T) {
	engine, err := runtime.NewEngine(retryGraph("nonexistent_expert"))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	var fellBack bool
	engine2, _ := runtime.NewEngine(retryGraph("nonexistent_expert"), runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			if e.Fallback {
				fellBack = true
			}
		},
	}))

	ctx := context.Background()
	for _, eng := range []*runtime.Engine{engine, engine2} {
		state, _ := eng.Start(ctx, runtime.Request{})
		final, outcome, err := eng.Run(ctx, state)
		if err != nil || outcome != runtime.OutcomeCompleted {
			t.Fatalf("Run = %s, %v", outcome, err)
		}
		if final.FinalAnswer() != "safe" {
			t.Errorf("expected fallback node, got %q", final.FinalAnswer())
		}
	}
	if !fellBack {
		t.Error("expected a fallback transition event")
	}
}

func TestGraph_Validate(t *testing.T) {
	tests := map[string]*runtime.Graph{
		"no entry":     runtime.NewGraph().AddNode(say("a")).AddEdge("a", runtime.End).SetExhausted("a"),
		"no exhausted": runtime.NewGraph().AddNode(say("a")).AddEdge("a", runtime.End).SetEntry("a"),
		"dangling edge": runtime.NewGraph().AddNode(say("a")).AddEdge("a", "ghost").
			SetEntry("a").SetExhausted("a"),
		"dead end": runtime.NewGraph().AddNode(say("a")).AddNode(say("b")).AddEdge("a", runtime.End).
			SetEntry("a").SetExhausted("a"),
		"duplicate": runtime.NewGraph().AddNode(say("a")).AddNode(say("a")).AddEdge("a", runtime.End).
			SetEntry("a").SetExhausted("a"),
		"bad fallback": runtime.NewGraph().AddNode(say("a")).
			AddConditionalEdge("a", func(*domain.State) string { return "" }, nil, "ghost").
			SetEntry("a").SetExhausted("a"),
	}
	for name, g := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := runtime.NewEngine(g); !errors.Is(err, domain.ErrGraphMisconfigured) {
				t.Errorf("expected ErrGraphMisconfigured, got %v", err)
			}
		})
	}
}

func TestEngine_NodeFailuresAreFaults(t *testing.T) {
	boom := errors.New("boom")
	for name, node := range map[string]runtime.Node{
		"error": runtime.Func("a", func(context.Context, *domain.State) (domain.Delta, error) { return domain.Delta{}, boom }),
		"panic": runtime.Func("a", func(context.Context, *domain.State) (domain.Delta, error) { panic("kaboom") }),
	} {
		t.Run(name, func(t *testing.T) {
			g := runtime.NewGraph().AddNode(node).AddEdge("a", runtime.End).SetEntry("a").SetExhausted("a")
			engine, err := runtime.NewEngine(g)
			if err != nil {
				t.Fatalf("NewEngine failed: %v", err)
			}
			state, _ := engine.Start(context.Background(), runtime.Request{})
			_, _, err = engine.Run(context.Background(), state)

			var fault *runtime.ExecutorFault
			if !errors.As(err, &fault) || fault.Node != "a" {
				t.Fatalf("expected ExecutorFault at a, got %v", err)
			}
		})
	}
}

func TestEngine_SetOnceViolationIsFault(t *testing.T) {
	g := runtime.NewGraph().
		AddNode(runtime.Func("a", func(context.Context, *domain.State) (domain.Delta, error) {
			return domain.Delta{AuditHash: domain.Ptr("first")}, nil
		})).
		AddNode(runtime.Func("b", func(context.Context, *domain.State) (domain.Delta, error) {
			return domain.Delta{AuditHash: domain.Ptr("second")}, nil
		})).
		AddEdge("a", "b").AddEdge("b", runtime.End).SetEntry("a").SetExhausted("b")
	engine, _ := runtime.NewEngine(g)
	state, _ := engine.Start(context.Background(), runtime.Request{})

	final, _, err := engine.Run(context.Background(), state)
	if !errors.Is(err, domain.ErrImmutableField) {
		t.Fatalf("expected ErrImmutableField, got %v", err)
	}
	if final.AuditHash != "first" {
		t.Errorf("audit hash rewritten to %q", final.AuditHash)
	}
}

func TestEngine_StepCeiling(t *testing.T) {
	g := runtime.NewGraph().
		AddNode(say("a")).AddNode(say("b")).
		AddEdge("a", "b").AddEdge("b", "a").
		SetEntry("a").SetExhausted("b")
	engine, _ := runtime.NewEngine(g, runtime.WithMaxSteps(10))
	state, _ := engine.Start(context.Background(), runtime.Request{})

	final, _, err := engine.Run(context.Background(), state)
	if !errors.Is(err, domain.ErrGraphMisconfigured) {
		t.Fatalf("expected ErrGraphMisconfigured, got %v", err)
	}
	if final.Steps != 10 {
		t.Errorf("expected 10 steps, got %d", final.Steps)
	}
}

func TestEngine_CanceledContext(t *testing.T) {
	engine, _ := runtime.NewEngine(linearGraph())
	ctx, cancel := context.WithCancel(context.Background())
	state, _ := engine.Start(ctx, runtime.Request{})
	cancel()

	_, _, err := engine.Run(ctx, state)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

type fakeSpeculator struct{}

func (fakeSpeculator) Plan(*domain.State) []string { return []string{"t1", "t2"} }

func (fakeSpeculator) Execute(_ context.Context, tasks []string) map[string]domain.SpeculativeResult {
	out := make(map[string]domain.SpeculativeResult, len(tasks))
	for _, task := range tasks {
		out[task] = domain.SpeculativeResult{Task: task, Status: domain.SpeculativeSuccess, Output: "done " + task}
	}
	return out
}

func TestEngine_SpeculativeResultsMerged(t *testing.T) {
	sink := &recordingSink{}
	engine, _ := runtime.NewEngine(linearGraph(), runtime.WithSpeculator(fakeSpeculator{}), runtime.WithAuditSink(sink))
	ctx := context.Background()

	state, _ := engine.Start(ctx, runtime.Request{})
	if len(state.SpeculativeQueue) != 2 {
		t.Fatalf("expected queued tasks, got %v", state.SpeculativeQueue)
	}

	final, _, err := engine.Run(ctx, state)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(final.SpeculativeQueue) != 0 {
		t.Errorf("queue not cleared: %v", final.SpeculativeQueue)
	}
	if final.SpeculativeResults["t2"].Output != "done t2" {
		t.Errorf("unexpected results: %+v", final.SpeculativeResults)
	}
	if len(final.Messages) != 3 {
		t.Errorf("primary walk disturbed: %d messages", len(final.Messages))
	}
	if sink.count(runtime.EventSpeculativeMerged) != 1 {
		t.Error("expected a speculative merge record")
	}
}
