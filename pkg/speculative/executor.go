// Package speculative runs low-risk background tasks alongside a walk.
//
// Tasks only ever see a restricted tool registry (no critical tools), each task is
// isolated from the others, and the batch is merged into the walk in one step.
package speculative

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/oracle"
	"github.com/aretw0/cognito/pkg/ports"
	"github.com/aretw0/cognito/pkg/registry"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds concurrent speculative tasks.
const DefaultWorkers = 4

// Planner decides which background tasks a walk should run.
type Planner func(state *domain.State) []string

// DefaultPlanner queues the same three preparatory tasks for every walk.
func DefaultPlanner(_ *domain.State) []string {
	return []string{
		"Pre-fetch related definitions using the RAG tool.",
		"Generate a draft outline for the final report.",
		"Identify and classify all numerical data points in the current context.",
	}
}

// Executor runs speculative batches with a bounded worker pool.
type Executor struct {
	oracle  ports.ReasoningOracle
	tools   *registry.Registry
	decoder *oracle.Decoder
	planner Planner
	workers int
	logger  *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithWorkers sets the pool size. Values below one are ignored.
func WithWorkers(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithPlanner replaces DefaultPlanner.
func WithPlanner(p Planner) Option {
	return func(e *Executor) { e.planner = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithExclude removes additional tools from the speculative subset.
func WithExclude(names ...string) Option {
	return func(e *Executor) { e.tools = e.tools.Restrict(names...) }
}

// New builds an executor over the safe subset of tools.
func New(o ports.ReasoningOracle, tools *registry.Registry, opts ...Option) *Executor {
	e := &Executor{
		oracle:  o,
		tools:   tools.Restrict(),
		planner: DefaultPlanner,
		workers: DefaultWorkers,
		logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.decoder = oracle.NewDecoder(e.tools.Names())
	return e
}

// Plan returns the tasks to queue for state.
func (e *Executor) Plan(state *domain.State) []string {
	return e.planner(state)
}

// Execute runs every task and returns one result per distinct task.
// A failing or panicking task never affects its siblings.
func (e *Executor) Execute(ctx context.Context, tasks []string) map[string]domain.SpeculativeResult {
	results := make(map[string]domain.SpeculativeResult, len(tasks))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	seen := make(map[string]struct{}, len(tasks))
	for _, task := range tasks {
		if _, dup := seen[task]; dup {
			continue
		}
		seen[task] = struct{}{}

		g.Go(func() error {
			r := e.run(gCtx, task)
			mu.Lock()
			results[task] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *Executor) run(ctx context.Context, task string) (result domain.SpeculativeResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("speculative task panicked", "task", task, "panic", r)
			result = failed(task, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return failed(task, err)
	}

	completion, err := e.oracle.Invoke(ctx, ports.Prompt{
		Purpose:  ports.PurposeSpeculative,
		Messages: []domain.Message{{Role: domain.RoleUser, Content: task}},
		Tools:    e.tools.Tools(),
	})
	if err != nil {
		return failed(task, err)
	}

	decoded := e.decoder.Decode(completion)
	switch decoded.Kind {
	case oracle.DecodeFailure:
		return failed(task, decoded.Err)
	case oracle.PlainAnswer:
		return domain.SpeculativeResult{Task: task, Status: domain.SpeculativeSuccess, Output: decoded.Text}
	}

	out, err := e.tools.Invoke(ctx, decoded.ToolCall.Name, decoded.ToolCall.Args)
	if err != nil {
		return failed(task, err)
	}
	e.logger.Debug("speculative task done", "task", task, "tool", decoded.ToolCall.Name)
	return domain.SpeculativeResult{Task: task, Status: domain.SpeculativeSuccess, Output: out}
}

func failed(task string, err error) domain.SpeculativeResult {
	return domain.SpeculativeResult{Task: task, Status: domain.SpeculativeFailure, Error: err.Error()}
}
