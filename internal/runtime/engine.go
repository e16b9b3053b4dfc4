package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"time"

	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/ports"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultMaxIterations bounds specialist re-executions per walk.
	DefaultMaxIterations = 3
	// DefaultMaxSteps bounds node executions per walk and catches cycles the
	// iteration ceiling does not cover.
	DefaultMaxSteps = 64
)

// Audit event types written by the engine.
const (
	EventWalkStarted       = "WALK_STARTED"
	EventTransition        = "TRANSITION"
	EventSuspended         = "SUSPENDED"
	EventResumed           = "RESUMED"
	EventWalkCompleted     = "WALK_COMPLETED"
	EventSpeculativeMerged = "SPECULATIVE_MERGED"
)

// Outcome is what a step or run ended with.
type Outcome int

const (
	OutcomeContinue Outcome = iota
	OutcomeSuspended
	OutcomeCompleted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuspended:
		return "suspended"
	case OutcomeCompleted:
		return "completed"
	default:
		return "continue"
	}
}

// Request starts a walk.
type Request struct {
	WalkID      string
	UserID      string
	RawInput    string
	TargetRoute string
}

// Speculator plans and runs background tasks for a walk.
type Speculator interface {
	Plan(state *domain.State) []string
	Execute(ctx context.Context, tasks []string) map[string]domain.SpeculativeResult
}

// ExecutorFault is the only error class that escapes a walk: a node error, a panic,
// an invariant violation in a delta, or a topology problem.
type ExecutorFault struct {
	Node string
	Err  error
}

func (f *ExecutorFault) Error() string {
	return fmt.Sprintf("executor fault at node '%s': %v", f.Node, f.Err)
}

func (f *ExecutorFault) Unwrap() error { return f.Err }

// Engine drives walks through a Graph, one node at a time.
// It holds no per-walk state; every walk is passed in and returned.
type Engine struct {
	graph         *Graph
	logger        *slog.Logger
	hooks         domain.LifecycleHooks
	audit         ports.AuditSink
	reputation    ports.ReputationStore
	speculator    Speculator
	critical      map[string]struct{}
	maxIterations int
	maxSteps      int
	now           func() time.Time
	newID         func() string
	tracer        trace.Tracer
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) { e.hooks = hooks }
}

// WithAuditSink records one entry per transition. Sink failures are logged, never fatal.
func WithAuditSink(sink ports.AuditSink) EngineOption {
	return func(e *Engine) { e.audit = sink }
}

// WithReputationStore seeds new walks from the process-wide scores.
func WithReputationStore(store ports.ReputationStore) EngineOption {
	return func(e *Engine) { e.reputation = store }
}

// WithSpeculator runs background tasks alongside every walk.
func WithSpeculator(s Speculator) EngineOption {
	return func(e *Engine) { e.speculator = s }
}

// WithCriticalTools replaces the set of tools that require approval.
func WithCriticalTools(names ...string) EngineOption {
	return func(e *Engine) {
		e.critical = make(map[string]struct{}, len(names))
		for _, n := range names {
			e.critical[n] = struct{}{}
		}
	}
}

// WithMaxIterations sets the retry ceiling.
func WithMaxIterations(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// WithMaxSteps sets the node execution ceiling.
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides walk ID generation.
func WithIDGenerator(fn func() string) EngineOption {
	return func(e *Engine) { e.newID = fn }
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) { e.tracer = t }
}

// NewEngine validates graph and builds an engine. A misconfigured graph is fatal.
func NewEngine(graph *Graph, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		graph:         graph,
		logger:        slog.New(slog.NewJSONHandler(io.Discard, nil)),
		critical:      map[string]struct{}{},
		maxIterations: DefaultMaxIterations,
		maxSteps:      DefaultMaxSteps,
		now:           time.Now,
		newID:         uuid.NewString,
		tracer:        otel.Tracer("github.com/aretw0/cognito/internal/runtime"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Graph returns the topology the engine runs.
func (e *Engine) Graph() *Graph { return e.graph }

// MaxIterations returns the retry ceiling.
func (e *Engine) MaxIterations() int { return e.maxIterations }

// Start creates a walk positioned at the entry node.
func (e *Engine) Start(ctx context.Context, req Request) (*domain.State, error) {
	id := req.WalkID
	if id == "" {
		id = e.newID()
	}
	s := domain.NewState(id, req.UserID, req.RawInput)
	s.CurrentNode = e.graph.entry
	s.TargetRoute = req.TargetRoute
	s.StartedAt = e.now()
	s.UpdatedAt = s.StartedAt

	if e.reputation != nil {
		snap, err := e.reputation.Snapshot(ctx)
		if err != nil {
			e.logger.Warn("reputation snapshot unavailable, using neutral scores", "walk_id", id, "err", err)
		} else {
			maps.Copy(s.Reputation, snap)
		}
	}
	if e.speculator != nil {
		s.SpeculativeQueue = e.speculator.Plan(s)
	}

	e.record(ctx, s, EventWalkStarted, map[string]any{
		"target_route": req.TargetRoute,
		"input_length": len(req.RawInput),
		"speculative":  len(s.SpeculativeQueue),
	})
	e.logger.Debug("walk started", "walk_id", id, "entry", s.CurrentNode)
	return s, nil
}

// Run steps the walk until it completes or suspends. Queued speculative tasks run
// concurrently and are merged before Run returns.
func (e *Engine) Run(ctx context.Context, state *domain.State) (*domain.State, Outcome, error) {
	if state == nil {
		return nil, OutcomeContinue, errors.New("nil state")
	}
	if state.Terminated() {
		return state, OutcomeCompleted, nil
	}
	if state.Suspended() {
		return state, OutcomeSuspended, domain.ErrAlreadySuspended
	}

	w := newWalk(state)
	var done <-chan struct{}
	if e.speculator != nil && len(state.SpeculativeQueue) > 0 {
		done = e.speculate(ctx, w)
	}

	outcome, err := e.drive(ctx, w)
	if done != nil {
		<-done
	}
	return w.snapshot(), outcome, err
}

// Step executes exactly one node. It does not start speculative tasks.
func (e *Engine) Step(ctx context.Context, state *domain.State) (*domain.State, Outcome, error) {
	if state == nil {
		return nil, OutcomeContinue, errors.New("nil state")
	}
	if state.Terminated() {
		return state, OutcomeCompleted, domain.ErrWalkTerminated
	}
	if state.Suspended() {
		return state, OutcomeSuspended, domain.ErrAlreadySuspended
	}
	w := newWalk(state)
	outcome, err := e.advance(ctx, w)
	return w.snapshot(), outcome, err
}

func (e *Engine) drive(ctx context.Context, w *walk) (Outcome, error) {
	for {
		if err := ctx.Err(); err != nil {
			return OutcomeContinue, err
		}
		outcome, err := e.advance(ctx, w)
		if err != nil || outcome != OutcomeContinue {
			return outcome, err
		}
	}
}

// advance runs the current node, merges its delta and resolves the next node.
func (e *Engine) advance(ctx context.Context, w *walk) (Outcome, error) {
	current := w.snapshot()
	nodeID := current.CurrentNode

	node, ok := e.graph.nodes[nodeID]
	if !ok {
		return OutcomeContinue, &ExecutorFault{Node: nodeID, Err: fmt.Errorf("%w: unknown node %q", domain.ErrGraphMisconfigured, nodeID)}
	}
	if current.Steps >= e.maxSteps {
		return OutcomeContinue, &ExecutorFault{Node: nodeID, Err: fmt.Errorf("%w: step ceiling %d reached", domain.ErrGraphMisconfigured, e.maxSteps)}
	}

	if approval := e.interrupt(node, current); approval != nil {
		return OutcomeSuspended, e.suspend(ctx, w, approval)
	}

	ctx, span := e.tracer.Start(ctx, "cognito.node."+nodeID, trace.WithAttributes(
		attribute.String("walk.id", current.WalkID),
		attribute.Int("walk.iteration", current.IterationCount),
		attribute.String("walk.specialist", string(current.ActiveSpecialist)),
	))
	defer span.End()

	call := proposedAction(node, current)
	if call != nil {
		e.emitToolCall(ctx, current, nodeID, call)
	}

	e.emitNodeEnter(ctx, current, nodeID)
	started := e.now()
	delta, err := e.runNode(ctx, node, current)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error("node failed", "walk_id", current.WalkID, "node", nodeID, "err", err)
		return OutcomeContinue, &ExecutorFault{Node: nodeID, Err: err}
	}

	var prev, next *domain.State
	var res resolution
	err = w.commit(func(s *domain.State) error {
		prev = s.Clone()
		if err := s.Apply(delta); err != nil {
			return err
		}
		s.History = append(s.History, nodeID)
		s.Steps++
		s.UpdatedAt = e.now()

		r, err := e.graph.resolve(nodeID, s)
		if err != nil {
			return err
		}
		if r.retry {
			if s.IterationCount >= e.maxIterations {
				r.to, r.exhausted = e.graph.exhausted, true
			} else {
				s.IterationCount++
				s.Status = domain.StatusRevising
			}
		}
		if r.to == End {
			s.Status = domain.StatusTerminated
			s.CurrentNode = ""
		} else {
			s.CurrentNode = r.to
		}
		res = r
		next = s.Clone()
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return OutcomeContinue, &ExecutorFault{Node: nodeID, Err: err}
	}

	if call != nil {
		e.emitToolReturns(ctx, next, nodeID, call, delta)
	}
	e.emitNodeLeave(ctx, next, nodeID, e.now().Sub(started))

	if res.fallback {
		e.logger.Warn("route did not resolve, using fallback", "walk_id", next.WalkID, "node", nodeID, "label", res.label, "fallback", res.to)
	}
	if res.exhausted {
		e.logger.Info("iteration ceiling reached, synthesizing", "walk_id", next.WalkID, "iterations", next.IterationCount)
	}
	e.emitTransition(ctx, next, nodeID, res)
	e.record(ctx, next, EventTransition, map[string]any{
		"from":      nodeID,
		"to":        res.to,
		"label":     res.label,
		"retry":     res.retry && !res.exhausted,
		"fallback":  res.fallback,
		"exhausted": res.exhausted,
		"status":    string(next.Status),
		"iteration": next.IterationCount,
		"diff":      domain.Diff(prev, next),
	})

	if next.Terminated() {
		e.record(ctx, next, EventWalkCompleted, map[string]any{
			"audit_hash": next.AuditHash,
			"specialist": string(next.ActiveSpecialist),
			"risk_score": next.RiskScore,
			"iterations": next.IterationCount,
			"steps":      next.Steps,
		})
		e.logger.Debug("walk completed", "walk_id", next.WalkID, "steps", next.Steps)
		return OutcomeCompleted, nil
	}
	return OutcomeContinue, nil
}

func (e *Engine) runNode(ctx context.Context, node Node, s *domain.State) (d domain.Delta, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("node panicked: %v", r)
		}
	}()
	return node.Run(ctx, s.Clone())
}

// record writes an audit entry. Failures are logged and swallowed.
func (e *Engine) record(ctx context.Context, s *domain.State, eventType string, details map[string]any) {
	if e.audit == nil {
		return
	}
	rec := ports.AuditRecord{
		Timestamp: e.now(),
		WalkID:    s.WalkID,
		EventType: eventType,
		Details:   details,
	}
	if err := e.audit.Append(ctx, rec); err != nil {
		e.logger.Warn("audit sink write failed", "walk_id", s.WalkID, "event", eventType, "err", err)
	}
}

func (e *Engine) speculate(ctx context.Context, w *walk) <-chan struct{} {
	done := make(chan struct{})
	tasks := w.snapshot().SpeculativeQueue
	go func() {
		defer close(done)
		results := e.speculator.Execute(ctx, tasks)
		merged := w.mergeSpeculative(results)

		failures := 0
		for _, r := range results {
			if r.Status == domain.SpeculativeFailure {
				failures++
			}
		}
		e.record(ctx, merged, EventSpeculativeMerged, map[string]any{
			"tasks":    len(results),
			"failures": failures,
		})
	}()
	return done
}
