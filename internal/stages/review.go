package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/ports"
)

// Risk scores assigned by the risk assessor.
const (
	HighRisk = 0.95
	LowRisk  = 0.2
)

// SafetyDecision is the runtime safety verdict on the latest output.
type SafetyDecision string

const (
	SafetyApprove       SafetyDecision = "APPROVE"
	SafetyFlagAndReject SafetyDecision = "FLAG_AND_REJECT"
	SafetyRewriteSafe   SafetyDecision = "REWRITE_SAFE"
)

// VerboseWords is the length above which output is flagged for rewriting.
const VerboseWords = 500

// CheckSafety classifies text against the runtime safety policy.
func CheckSafety(text string) (SafetyDecision, string) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "delete database") && !strings.Contains(lower, "hitl approved"):
		return SafetyFlagAndReject, "Attempted unauthorized critical action (Database Deletion) without explicit HITL approval status."
	case len(strings.Fields(text)) > VerboseWords:
		return SafetyRewriteSafe, "Output is excessively verbose; requires summarization to maintain clarity."
	default:
		return SafetyApprove, "Output is compliant and safe."
	}
}

// classifyRisk scores the walk. A regulated specialist or a sensitive topic makes it
// high risk, and msg then gets the banner at most once.
func (d Deps) classifyRisk(s *domain.State, msg *domain.Message) (score float64, report string, high bool) {
	high = d.Policy.regulated(s.ActiveSpecialist)
	query := strings.ToLower(s.OriginalQuery())
	for _, topic := range d.Policy.SensitiveTopics {
		if topic != "" && strings.Contains(query, strings.ToLower(topic)) {
			high = true
		}
	}
	if !high {
		return LowRisk, "Low risk assessment.", false
	}
	if !strings.HasPrefix(msg.Content, domain.RiskBanner) {
		msg.Content = domain.RiskBanner + msg.Content
	}
	return HighRisk, "CRITICAL RISK: Content touches on regulated advice. Mandatory disclaimers confirmed.", true
}

// assessRisk scores the answer and prepends the high-risk banner at most once.
func (d Deps) assessRisk(_ context.Context, s *domain.State) (domain.Delta, error) {
	last, _ := s.LastMessage()
	original := last.Content

	decision, why := CheckSafety(last.Content)
	if decision != SafetyApprove {
		d.Logger.Warn("runtime safety check flagged output", "walk_id", s.WalkID, "decision", decision, "reason", why)
	}

	score, report, high := d.classifyRisk(s, &last)
	out := domain.Delta{RiskWarned: high}
	if last.Content != original {
		out.ReplaceLast = &last
	}
	report = fmt.Sprintf("%s | SAFETY: %s (%s)", report, decision, why)

	out.RiskScore = &score
	out.RiskReport = &report
	return out, nil
}

// critique asks the oracle to review the answer. An unreachable oracle counts as a failed review.
func (d Deps) critique(ctx context.Context, s *domain.State) (domain.Delta, error) {
	report := ""
	c, err := d.Oracle.Invoke(ctx, ports.Prompt{
		Purpose:    ports.PurposeCritique,
		Specialist: s.ActiveSpecialist,
		Model:      s.Model,
		Messages:   s.Messages,
	})
	switch {
	case err != nil && ctx.Err() != nil:
		return domain.Delta{}, err
	case err != nil:
		report = "CRITICAL FAILURE: critique unavailable: " + err.Error()
		d.Logger.Warn("critique oracle failed", "walk_id", s.WalkID, "err", err)
	default:
		report = strings.TrimSpace(c.Content)
	}

	d.Logger.Debug("critique", "walk_id", s.WalkID, "specialist", s.ActiveSpecialist,
		"verdict", domain.ClassifyCritique(report), "iteration", s.IterationCount)
	return domain.Delta{
		Status:         domain.Ptr(domain.StatusReflecting),
		CritiqueReport: &report,
	}, nil
}

// replan is where a rejected critical action re-enters the walk. The edge out of it
// sends the walk back to the active specialist.
func (d Deps) replan(_ context.Context, s *domain.State) (domain.Delta, error) {
	d.Logger.Info("replanning after rejected action", "walk_id", s.WalkID,
		"specialist", s.ActiveSpecialist, "iteration", s.IterationCount)
	return domain.Delta{Status: domain.Ptr(domain.StatusRevising)}, nil
}
