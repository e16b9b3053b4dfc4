package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter  EventType = "node_enter"
	EventNodeLeave  EventType = "node_leave"
	EventToolCall   EventType = "tool_call"
	EventToolReturn EventType = "tool_return"
	EventSuspend    EventType = "suspend"
	EventResume     EventType = "resume"
	EventTransition EventType = "transition"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	WalkID    string    `json:"walk_id"`
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID     string        `json:"node_id"`
	Status     Status        `json:"status"`
	Iteration  int           `json:"iteration"`
	Duration   time.Duration `json:"duration,omitempty"`
	Specialist Specialist    `json:"specialist,omitempty"`
}

// ToolEvent represents a tool execution.
type ToolEvent struct {
	EventBase
	NodeID   string `json:"node_id"`
	ToolName string `json:"tool_name"`
	Input    any    `json:"input,omitempty"`
	Output   any    `json:"output,omitempty"`
	IsError  bool   `json:"is_error,omitempty"`
}

// TransitionEvent is emitted after every merged step.
type TransitionEvent struct {
	EventBase
	From string `json:"from"`
	To   string `json:"to"`
	// Retry marks a re-execution of a specialist.
	Retry bool `json:"retry,omitempty"`
	// Fallback marks a conditional route that did not resolve.
	Fallback bool `json:"fallback,omitempty"`
}

// ApprovalEvent is emitted on suspension and on resume.
type ApprovalEvent struct {
	EventBase
	ToolName string   `json:"tool_name"`
	Decision Decision `json:"decision,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNodeEnter  func(context.Context, *NodeEvent)
	OnNodeLeave  func(context.Context, *NodeEvent)
	OnToolCall   func(context.Context, *ToolEvent)
	OnToolReturn func(context.Context, *ToolEvent)
	OnSuspend    func(context.Context, *ApprovalEvent)
	OnResume     func(context.Context, *ApprovalEvent)
	OnTransition func(context.Context, *TransitionEvent)
}

// ChainHooks fans every callback out to all non-nil hooks, in order.
func ChainHooks(hooks ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *NodeEvent) {
			for _, h := range hooks {
				if h.OnNodeEnter != nil {
					h.OnNodeEnter(ctx, e)
				}
			}
		},
		OnNodeLeave: func(ctx context.Context, e *NodeEvent) {
			for _, h := range hooks {
				if h.OnNodeLeave != nil {
					h.OnNodeLeave(ctx, e)
				}
			}
		},
		OnToolCall: func(ctx context.Context, e *ToolEvent) {
			for _, h := range hooks {
				if h.OnToolCall != nil {
					h.OnToolCall(ctx, e)
				}
			}
		},
		OnToolReturn: func(ctx context.Context, e *ToolEvent) {
			for _, h := range hooks {
				if h.OnToolReturn != nil {
					h.OnToolReturn(ctx, e)
				}
			}
		},
		OnSuspend: func(ctx context.Context, e *ApprovalEvent) {
			for _, h := range hooks {
				if h.OnSuspend != nil {
					h.OnSuspend(ctx, e)
				}
			}
		},
		OnResume: func(ctx context.Context, e *ApprovalEvent) {
			for _, h := range hooks {
				if h.OnResume != nil {
					h.OnResume(ctx, e)
				}
			}
		},
		OnTransition: func(ctx context.Context, e *TransitionEvent) {
			for _, h := range hooks {
				if h.OnTransition != nil {
					h.OnTransition(ctx, e)
				}
			}
		},
	}
}
