package runtime

import (
	"context"
	"time"

	"github.com/aretw0/cognito/pkg/domain"
)

func (e *Engine) base(s *domain.State, t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: e.now(), Type: t, WalkID: s.WalkID}
}

func (e *Engine) emitNodeEnter(ctx context.Context, s *domain.State, nodeID string) {
	if e.hooks.OnNodeEnter == nil {
		return
	}
	e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase:  e.base(s, domain.EventNodeEnter),
		NodeID:     nodeID,
		Status:     s.Status,
		Iteration:  s.IterationCount,
		Specialist: s.ActiveSpecialist,
	})
}

func (e *Engine) emitNodeLeave(ctx context.Context, s *domain.State, nodeID string, took time.Duration) {
	if e.hooks.OnNodeLeave == nil {
		return
	}
	e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
		EventBase:  e.base(s, domain.EventNodeLeave),
		NodeID:     nodeID,
		Status:     s.Status,
		Iteration:  s.IterationCount,
		Duration:   took,
		Specialist: s.ActiveSpecialist,
	})
}

func (e *Engine) emitToolCall(ctx context.Context, s *domain.State, nodeID string, call *domain.ToolCall) {
	if e.hooks.OnToolCall == nil {
		return
	}
	e.hooks.OnToolCall(ctx, &domain.ToolEvent{
		EventBase: e.base(s, domain.EventToolCall),
		NodeID:    nodeID,
		ToolName:  call.Name,
		Input:     call.Args,
	})
}

// emitToolReturns reports the tool outcomes the node appended to the history.
func (e *Engine) emitToolReturns(ctx context.Context, s *domain.State, nodeID string, call *domain.ToolCall, d domain.Delta) {
	if e.hooks.OnToolReturn == nil {
		return
	}
	for _, m := range d.AppendMessages {
		if m.Kind != domain.KindToolResult && m.Kind != domain.KindToolError {
			continue
		}
		e.hooks.OnToolReturn(ctx, &domain.ToolEvent{
			EventBase: e.base(s, domain.EventToolReturn),
			NodeID:    nodeID,
			ToolName:  call.Name,
			Output:    m.Content,
			IsError:   m.Kind == domain.KindToolError,
		})
	}
}

func (e *Engine) emitTransition(ctx context.Context, s *domain.State, from string, r resolution) {
	if e.hooks.OnTransition == nil {
		return
	}
	e.hooks.OnTransition(ctx, &domain.TransitionEvent{
		EventBase: e.base(s, domain.EventTransition),
		From:      from,
		To:        r.to,
		Retry:     r.retry && !r.exhausted,
		Fallback:  r.fallback,
	})
}
