package cognito

import (
	"log/slog"
	"time"

	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/observability"
	"github.com/aretw0/cognito/pkg/ports"
	"github.com/aretw0/cognito/pkg/registry"
	"github.com/aretw0/cognito/pkg/trust"
)

// Option defines a functional option for configuring the Service.
type Option func(*Service)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithOracle replaces the offline keyword oracle.
func WithOracle(o ports.ReasoningOracle) Option {
	return func(s *Service) { s.oracle = o }
}

// WithTools replaces the built-in tool registry.
func WithTools(r *registry.Registry) Option {
	return func(s *Service) { s.tools = r }
}

// WithSigner replaces the development ed25519 signer.
func WithSigner(signer ports.Signer) Option {
	return func(s *Service) { s.signer = signer }
}

// WithHasher replaces the SHA-256 audit hasher.
func WithHasher(h trust.Hasher) Option {
	return func(s *Service) { s.hasher = h }
}

// WithStateStore sets where suspended walks are parked.
func WithStateStore(store ports.StateStore) Option {
	return func(s *Service) { s.store = store }
}

// WithLocker adds a distributed lock around parked walks, for multi-instance deployments.
func WithLocker(l ports.DistributedLocker) Option {
	return func(s *Service) { s.locker = l }
}

// WithAuditSink sets the audit trail sink.
func WithAuditSink(sink ports.AuditSink) Option {
	return func(s *Service) { s.audit = sink }
}

// WithKnowledgeSink sets where fused lessons are stored.
func WithKnowledgeSink(sink ports.KnowledgeSink) Option {
	return func(s *Service) { s.knowledge = sink }
}

// WithTrainingSink sets where training examples are logged.
func WithTrainingSink(sink ports.TrainingSink) Option {
	return func(s *Service) { s.training = sink }
}

// WithReputationStore sets the process-wide specialist scores.
func WithReputationStore(store ports.ReputationStore) Option {
	return func(s *Service) { s.reputation = store }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Service) { s.hooks = append(s.hooks, hooks) }
}

// WithMetrics records Prometheus metrics for every walk.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithMaxIterations sets the revision ceiling per walk.
func WithMaxIterations(n int) Option {
	return func(s *Service) { s.maxIterations = n }
}

// WithMaxSteps sets the node execution ceiling per walk.
func WithMaxSteps(n int) Option {
	return func(s *Service) { s.maxSteps = n }
}

// WithCriticalTools replaces the tools that require approval. Tools registered as
// critical are always added.
func WithCriticalTools(names ...string) Option {
	return func(s *Service) { s.critical = names }
}

// WithSensitiveTopics marks queries mentioning any topic as high risk.
func WithSensitiveTopics(topics ...string) Option {
	return func(s *Service) { s.policy.SensitiveTopics = topics }
}

// WithModels sets the strong and default model names picked by the model selector.
func WithModels(strong, def string) Option {
	return func(s *Service) {
		s.policy.Models.Strong = strong
		s.policy.Models.Default = def
	}
}

// WithReputationFloor escalates specialists scoring below floor to the strong model.
func WithReputationFloor(floor float64) Option {
	return func(s *Service) { s.policy.ReputationFloor = floor }
}

// WithSpeculation turns background tasks on or off and sets the pool size.
func WithSpeculation(enabled bool, workers int) Option {
	return func(s *Service) {
		s.speculate = enabled
		s.workers = workers
	}
}

// WithMaxInputSize bounds raw query size in bytes.
func WithMaxInputSize(n int) Option {
	return func(s *Service) { s.maxInput = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}
