package stages

import (
	"context"
	"fmt"

	"github.com/aretw0/cognito/internal/runtime"
	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/oracle"
	"github.com/aretw0/cognito/pkg/ports"
	"github.com/aretw0/cognito/pkg/registry"
	"github.com/google/uuid"
)

// Expert is one specialist capability: an identity and the disclaimer its answers carry.
type Expert struct {
	ID         domain.Specialist
	Disclaimer string
}

// DefaultExperts covers the closed specialist set.
func DefaultExperts() []Expert {
	return []Expert{
		{ID: domain.Finance, Disclaimer: "FINANCIAL DISCLAIMER: AI, not a licensed advisor."},
		{ID: domain.Legal, Disclaimer: "LEGAL DISCLAIMER: AI, not a lawyer."},
		{ID: domain.Fitness, Disclaimer: "FITNESS DISCLAIMER: Consult your physician."},
		{ID: domain.Business, Disclaimer: "BUSINESS DISCLAIMER: General strategy advice."},
		{ID: domain.Health, Disclaimer: "HEALTH DISCLAIMER: Cannot diagnose or treat."},
		{ID: domain.GeneralQA, Disclaimer: "GENERAL QA: Based on general knowledge."},
	}
}

// FormatAnswer heads a specialist answer with its identity and disclaimer.
func FormatAnswer(e Expert, text string) string {
	return fmt.Sprintf("**%s RESPONSE:** %s %s", e.ID.Title(), e.Disclaimer, text)
}

type specialistNode struct {
	deps   Deps
	expert Expert
}

func (n specialistNode) Name() string { return string(n.expert.ID) }

// Run asks the oracle for an answer. A valid tool request is recorded as a pending
// tool call for the tool manager; anything else becomes the disclaimed answer.
func (n specialistNode) Run(ctx context.Context, s *domain.State) (domain.Delta, error) {
	id := n.expert.ID
	c, err := n.deps.Oracle.Invoke(ctx, ports.Prompt{
		Purpose:    ports.PurposeSpecialist,
		Specialist: id,
		Model:      s.Model,
		Messages:   s.Messages,
		Tools:      n.deps.Tools.Tools(),
	})
	if err != nil {
		return domain.Delta{}, fmt.Errorf("%s: %w", id, err)
	}

	d := domain.Delta{
		Status:           domain.Ptr(domain.StatusExecuting),
		ActiveSpecialist: &id,
	}

	decoded := n.deps.Decoder.Decode(c)
	switch decoded.Kind {
	case oracle.ToolCallIntent:
		call := decoded.ToolCall
		if call.ID == "" {
			call.ID = uuid.NewString()
		}
		d.PendingToolCall = call
		d.AppendMessages = []domain.Message{{
			Role:     domain.RoleAssistant,
			Kind:     domain.KindToolRequest,
			Content:  decoded.Text,
			ToolCall: call.Clone(),
		}}
		n.deps.Logger.Debug("specialist requested tool", "walk_id", s.WalkID, "specialist", id, "tool", call.Name)
		return d, nil
	case oracle.DecodeFailure:
		n.deps.Logger.Warn("tool request failed validation, treating as answer",
			"walk_id", s.WalkID, "specialist", id, "err", decoded.Err)
	}

	d.AppendMessages = []domain.Message{{
		Role:    domain.RoleAssistant,
		Content: FormatAnswer(n.expert, decoded.Text),
	}}
	return d, nil
}

// Tool outcome prefixes written to the history.
const (
	ToolResultPrefix = "TOOL RESULT: "
	ToolErrorPrefix  = "TOOL EXECUTION ERROR: "
)

type toolManager struct {
	deps Deps
}

var _ runtime.CriticalAction = toolManager{}

func (toolManager) Name() string { return NodeToolManager }

// ProposedAction exposes the pending call so the engine can gate critical tools.
func (toolManager) ProposedAction(s *domain.State) *domain.ToolCall {
	return s.PendingToolCall
}

// Run executes the pending call, if any. Failures are recorded in the history and
// the walk moves on.
func (t toolManager) Run(ctx context.Context, s *domain.State) (domain.Delta, error) {
	call := s.PendingToolCall
	if call == nil {
		return domain.Delta{}, nil
	}
	logger := t.deps.Logger.With("walk_id", s.WalkID, "tool", call.Name)

	msg := domain.Message{Role: domain.RoleTool, ToolCallID: call.ID}
	switch {
	case !t.deps.Tools.Has(call.Name):
		msg.Kind = domain.KindToolError
		msg.Content = registry.UnknownToolResult(call.Name)
		logger.Warn("unknown tool requested")
	default:
		out, err := t.deps.Tools.Invoke(ctx, call.Name, call.Args)
		if err != nil {
			if ctx.Err() != nil {
				return domain.Delta{}, err
			}
			msg.Kind = domain.KindToolError
			msg.Content = ToolErrorPrefix + err.Error()
			logger.Warn("tool failed", "err", err)
		} else {
			msg.Kind = domain.KindToolResult
			msg.Content = ToolResultPrefix + out
			logger.Info("tool executed")
		}
	}

	return domain.Delta{
		Status:               domain.Ptr(domain.StatusExecuting),
		AppendMessages:       []domain.Message{msg},
		ClearPendingToolCall: true,
	}, nil
}
