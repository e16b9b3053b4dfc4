package cognito

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/aretw0/cognito/internal/presentation/graph"
	"github.com/aretw0/cognito/internal/runtime"
	"github.com/aretw0/cognito/internal/stages"
	"github.com/aretw0/cognito/pkg/adapters/memory"
	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/observability"
	"github.com/aretw0/cognito/pkg/oracle"
	"github.com/aretw0/cognito/pkg/ports"
	"github.com/aretw0/cognito/pkg/registry"
	"github.com/aretw0/cognito/pkg/reputation"
	"github.com/aretw0/cognito/pkg/sanitize"
	"github.com/aretw0/cognito/pkg/session"
	"github.com/aretw0/cognito/pkg/speculative"
	"github.com/aretw0/cognito/pkg/trust"
)

// Development identity used when no signer is configured.
const (
	DevSeed = "cognito-dev-seed"
	DevDID  = "did:cognito:local"
)

// Query is one request to the service.
type Query struct {
	RawInput string `json:"raw_input"`
	UserID   string `json:"user_id,omitempty"`
	// TargetRoute forces a specialist. Unknown names fall back to general_qa.
	TargetRoute string `json:"target_route,omitempty"`
	// WalkID is generated when empty.
	WalkID string `json:"walk_id,omitempty"`
}

// Answer is the externally visible result of a walk.
type Answer struct {
	WalkID          string                  `json:"walk_id"`
	Status          domain.Status           `json:"status"`
	FinalAnswer     string                  `json:"final_answer"`
	AuditHash       string                  `json:"audit_hash,omitempty"`
	Signature       string                  `json:"signature,omitempty"`
	SpecialistUsed  domain.Specialist       `json:"specialist_used,omitempty"`
	RiskScore       float64                 `json:"risk_score"`
	Iterations      int                     `json:"iterations"`
	Caveat          string                  `json:"caveat,omitempty"`
	PendingApproval *domain.PendingApproval `json:"pending_approval,omitempty"`
}

// Suspended reports whether the walk waits for a human decision.
func (a *Answer) Suspended() bool { return a.PendingApproval != nil }

// AnswerFrom projects a walk onto its public result.
func AnswerFrom(s *domain.State) *Answer {
	a := &Answer{
		WalkID:          s.WalkID,
		Status:          s.Status,
		AuditHash:       s.AuditHash,
		Signature:       s.Signature,
		SpecialistUsed:  s.ActiveSpecialist,
		RiskScore:       s.RiskScore,
		Iterations:      s.IterationCount,
		Caveat:          s.Caveat,
		PendingApproval: s.PendingApproval.Clone(),
	}
	if s.Terminated() {
		a.FinalAnswer = s.FinalAnswer()
	}
	return a
}

// Service runs walks and parks the suspended ones.
type Service struct {
	logger     *slog.Logger
	oracle     ports.ReasoningOracle
	tools      *registry.Registry
	signer     ports.Signer
	hasher     trust.Hasher
	store      ports.StateStore
	locker     ports.DistributedLocker
	audit      ports.AuditSink
	knowledge  ports.KnowledgeSink
	training   ports.TrainingSink
	reputation ports.ReputationStore
	hooks      []domain.LifecycleHooks
	metrics    *observability.Metrics

	policy        stages.Policy
	critical      []string
	maxIterations int
	maxSteps      int
	speculate     bool
	workers       int
	maxInput      int
	now           func() time.Time

	engine   *runtime.Engine
	sessions *session.Manager
}

// New wires a service. Without options it runs fully offline: keyword oracle,
// built-in tools, development signer and in-memory stores.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		policy:        stages.DefaultPolicy(),
		critical:      registry.DefaultCritical(),
		maxIterations: runtime.DefaultMaxIterations,
		maxSteps:      runtime.DefaultMaxSteps,
		speculate:     true,
		workers:       speculative.DefaultWorkers,
		maxInput:      sanitize.DefaultMaxInputSize,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if s.oracle == nil {
		s.oracle = oracle.NewKeyword()
	}
	if s.tools == nil {
		s.tools = registry.Builtin()
	}
	if s.signer == nil {
		signer, err := trust.NewEd25519Signer([]byte(DevSeed), DevDID)
		if err != nil {
			return nil, fmt.Errorf("failed to create default signer: %w", err)
		}
		s.signer = signer
	}
	if s.store == nil {
		s.store = memory.NewStore()
	}
	if s.audit == nil {
		s.audit = memory.NewAuditLog(memory.DefaultAuditCapacity)
	}
	if s.knowledge == nil {
		s.knowledge = memory.NewKnowledge()
	}
	if s.training == nil {
		s.training = memory.NewTraining()
	}
	if s.reputation == nil {
		s.reputation = reputation.NewMemory()
	}
	s.policy.MaxIterations = s.maxIterations

	g, err := stages.BuildGraph(stages.Deps{
		Oracle:     s.oracle,
		Tools:      s.tools,
		Signer:     s.signer,
		Hasher:     s.hasher,
		Knowledge:  s.knowledge,
		Training:   s.training,
		Reputation: s.reputation,
		Policy:     s.policy,
		Logger:     s.logger,
		Clock:      s.now,
	})
	if err != nil {
		return nil, err
	}

	hooks := s.hooks
	if s.metrics != nil {
		hooks = append(hooks, s.metrics.Hooks())
	}
	critical := slices.Compact(slices.Sorted(slices.Values(append(slices.Clone(s.critical), s.tools.Critical()...))))

	engineOpts := []runtime.EngineOption{
		runtime.WithLogger(s.logger),
		runtime.WithLifecycleHooks(domain.ChainHooks(hooks...)),
		runtime.WithAuditSink(s.audit),
		runtime.WithReputationStore(s.reputation),
		runtime.WithCriticalTools(critical...),
		runtime.WithMaxIterations(s.maxIterations),
		runtime.WithMaxSteps(s.maxSteps),
		runtime.WithClock(s.now),
	}
	if s.speculate {
		engineOpts = append(engineOpts, runtime.WithSpeculator(speculative.New(s.oracle, s.tools,
			speculative.WithWorkers(s.workers),
			speculative.WithExclude(critical...),
			speculative.WithLogger(s.logger),
		)))
	}
	s.engine, err = runtime.NewEngine(g, engineOpts...)
	if err != nil {
		return nil, err
	}

	sessOpts := []session.Option{session.WithLogger(s.logger)}
	if s.locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(s.locker))
	}
	s.sessions = session.NewManager(s.store, sessOpts...)
	return s, nil
}

// Ask runs a walk for rawInput.
func (s *Service) Ask(ctx context.Context, rawInput, userID string) (*Answer, error) {
	return s.Query(ctx, Query{RawInput: rawInput, UserID: userID})
}

// Query runs a walk until it completes or suspends. A suspended walk is parked and
// can be continued with Resume.
func (s *Service) Query(ctx context.Context, q Query) (*Answer, error) {
	input, err := sanitize.Input(q.RawInput, s.maxInput)
	if err != nil {
		return nil, err
	}

	state, err := s.engine.Start(ctx, runtime.Request{
		WalkID:      q.WalkID,
		UserID:      q.UserID,
		RawInput:    input,
		TargetRoute: q.TargetRoute,
	})
	if err != nil {
		return nil, err
	}

	final, outcome, err := s.engine.Run(ctx, state)
	s.observe(outcome, err)
	if err != nil {
		s.logger.Error("walk failed", "walk_id", state.WalkID, "err", err)
		return nil, err
	}

	if outcome == runtime.OutcomeSuspended {
		if err := s.sessions.Park(ctx, final); err != nil {
			return nil, fmt.Errorf("failed to park suspended walk: %w", err)
		}
	}
	return AnswerFrom(final), nil
}

// Resume applies APPROVE or REJECT to a parked walk and runs it on. An unknown
// decision returns domain.ErrUnknownDecision and the walk stays parked.
func (s *Service) Resume(ctx context.Context, walkID, decision string) (*Answer, error) {
	final, err := s.sessions.Claim(ctx, walkID, func(ctx context.Context, parked *domain.State) (*domain.State, error) {
		if !parked.Suspended() {
			return parked, domain.ErrNotSuspended
		}
		next, outcome, err := s.engine.Resume(ctx, parked, decision)
		if !errors.Is(err, domain.ErrUnknownDecision) {
			s.observe(outcome, err)
		}
		if err != nil && !next.Suspended() {
			// A fault mid-walk: keep the approval so the caller can retry.
			return parked, err
		}
		return next, err
	})
	if err != nil {
		return nil, err
	}
	return AnswerFrom(final), nil
}

// Walk returns a parked walk.
func (s *Service) Walk(ctx context.Context, walkID string) (*domain.State, error) {
	return s.sessions.Load(ctx, walkID)
}

// Pending lists the IDs of parked walks.
func (s *Service) Pending(ctx context.Context) ([]string, error) {
	return s.sessions.List(ctx)
}

// Diagram renders the workflow as Mermaid. With a walk, visited and current nodes
// are highlighted.
func (s *Service) Diagram(walk *domain.State) string {
	var overlay *graph.GraphOverlay
	if walk != nil {
		overlay = graph.OverlayFor(walk.History, walk.CurrentNode)
	}
	return graph.GenerateMermaid(s.engine.Graph(), overlay)
}

// Tools lists the registered tools.
func (s *Service) Tools() []domain.Tool {
	return s.tools.Tools()
}

// Identity returns the DID answers are signed with.
func (s *Service) Identity() string {
	return s.signer.Identity()
}

func (s *Service) observe(outcome runtime.Outcome, err error) {
	if s.metrics == nil {
		return
	}
	if err != nil {
		s.metrics.ObserveWalk("fault")
		return
	}
	s.metrics.ObserveWalk(outcome.String())
}
