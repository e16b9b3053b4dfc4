package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/cognito/pkg/domain"
)

// LogHooks writes one structured line per lifecycle event. Node traffic is logged at
// debug; suspensions and resumes at info.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "walk_id", e.WalkID, "node_id", e.NodeID, "iteration", e.Iteration)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_leave", "walk_id", e.WalkID, "node_id", e.NodeID, "duration", e.Duration)
		},
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			logger.DebugContext(ctx, "tool_call", "walk_id", e.WalkID, "tool_name", e.ToolName)
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			logger.DebugContext(ctx, "tool_return", "walk_id", e.WalkID, "tool_name", e.ToolName, "is_error", e.IsError)
		},
		OnSuspend: func(ctx context.Context, e *domain.ApprovalEvent) {
			logger.InfoContext(ctx, "walk suspended for approval", "walk_id", e.WalkID, "tool_name", e.ToolName)
		},
		OnResume: func(ctx context.Context, e *domain.ApprovalEvent) {
			logger.InfoContext(ctx, "walk resumed", "walk_id", e.WalkID, "tool_name", e.ToolName, "decision", e.Decision)
		},
	}
}
