package runtime

import (
	"context"
	"fmt"
	"maps"

	"github.com/aretw0/cognito/pkg/domain"
)

// RejectionNotice is the refusal record appended to the history on REJECT.
const RejectionNotice = "Human Oversight: The requested critical action was REJECTED. " +
	"You must re-evaluate your strategy and propose a safer action or continue the planning phase."

// RiskRationale explains why an action needed approval.
const RiskRationale = "This action is irreversible or costly."

func proposedAction(node Node, s *domain.State) *domain.ToolCall {
	ca, ok := node.(CriticalAction)
	if !ok {
		return nil
	}
	return ca.ProposedAction(s)
}

// approvalKey identifies a call for approval purposes; calls without an ID fall back
// to their name.
func approvalKey(call *domain.ToolCall) string {
	if call.ID != "" {
		return call.ID
	}
	return call.Name
}

// interrupt returns the approval payload when node is about to run an unapproved
// critical action.
func (e *Engine) interrupt(node Node, s *domain.State) *domain.PendingApproval {
	call := proposedAction(node, s)
	if call == nil {
		return nil
	}
	if _, critical := e.critical[call.Name]; !critical {
		return nil
	}
	if s.ApprovedCallID != "" && s.ApprovedCallID == approvalKey(call) {
		return nil
	}
	return &domain.PendingApproval{
		ActionType:    domain.ActionTypeCriticalApproval,
		ToolCall:      *call.Clone(),
		Summary:       fmt.Sprintf("%s proposes to run %s", specialistOrDefault(s), call.Name),
		Args:          maps.Clone(call.Args),
		RiskRationale: RiskRationale,
		Specialist:    s.ActiveSpecialist,
		ResumeNode:    node.Name(),
		RequestedAt:   e.now().Unix(),
	}
}

func specialistOrDefault(s *domain.State) domain.Specialist {
	if s.ActiveSpecialist != "" {
		return s.ActiveSpecialist
	}
	return domain.DefaultSpecialist
}

// suspend parks the walk. The status is left as it was; the pending approval alone
// marks the suspension.
func (e *Engine) suspend(ctx context.Context, w *walk, approval *domain.PendingApproval) error {
	var suspended *domain.State
	err := w.commit(func(s *domain.State) error {
		s.PendingApproval = approval
		s.UpdatedAt = e.now()
		suspended = s.Clone()
		return nil
	})
	if err != nil {
		return &ExecutorFault{Node: approval.ResumeNode, Err: err}
	}

	if e.hooks.OnSuspend != nil {
		e.hooks.OnSuspend(ctx, &domain.ApprovalEvent{
			EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventSuspend, WalkID: suspended.WalkID},
			ToolName:  approval.ToolCall.Name,
		})
	}
	e.record(ctx, suspended, EventSuspended, map[string]any{
		"tool":       approval.ToolCall.Name,
		"args":       approval.Args,
		"specialist": string(approval.Specialist),
		"node":       approval.ResumeNode,
	})
	e.logger.Info("walk suspended for approval", "walk_id", suspended.WalkID, "tool", approval.ToolCall.Name)
	return nil
}

// Resume applies a human decision to a suspended walk and runs it on.
//
// APPROVE re-enters at the node that proposed the action and lets it run.
// REJECT appends exactly one refusal record and sends the walk to the replan node,
// whose retry edge consumes one iteration. An unknown decision leaves the walk suspended.
func (e *Engine) Resume(ctx context.Context, state *domain.State, rawDecision string) (*domain.State, Outcome, error) {
	if state == nil || !state.Suspended() {
		return state, OutcomeContinue, domain.ErrNotSuspended
	}
	decision, err := domain.ParseDecision(rawDecision)
	if err != nil {
		return state, OutcomeSuspended, err
	}

	next := state.Clone()
	pending := next.PendingApproval
	next.PendingApproval = nil
	next.UpdatedAt = e.now()

	switch decision {
	case domain.DecisionApprove:
		next.ApprovedCallID = approvalKey(&pending.ToolCall)
		next.CurrentNode = pending.ResumeNode
	case domain.DecisionReject:
		next.Messages = append(next.Messages, domain.Message{
			Role:       domain.RoleTool,
			Kind:       domain.KindRejection,
			Content:    RejectionNotice,
			ToolCallID: pending.ToolCall.ID,
		})
		next.PendingToolCall = nil
		next.ApprovedCallID = ""
		next.CurrentNode = e.graph.replan
		if next.CurrentNode == "" {
			next.CurrentNode = e.graph.exhausted
		}
	}

	if e.hooks.OnResume != nil {
		e.hooks.OnResume(ctx, &domain.ApprovalEvent{
			EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventResume, WalkID: next.WalkID},
			ToolName:  pending.ToolCall.Name,
			Decision:  decision,
		})
	}
	e.record(ctx, next, EventResumed, map[string]any{
		"decision": string(decision),
		"tool":     pending.ToolCall.Name,
		"next":     next.CurrentNode,
	})
	e.logger.Info("walk resumed", "walk_id", next.WalkID, "decision", decision, "tool", pending.ToolCall.Name)

	return e.Run(ctx, next)
}
