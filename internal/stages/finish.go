package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/ports"
	"github.com/aretw0/cognito/pkg/reputation"
	"github.com/aretw0/cognito/pkg/trust"
)

// Fallback texts used by synthesis when no usable answer exists.
const (
	DeclinedAnswer = "The requested action was declined during human review and was not performed."
	NoAnswer       = "No verified answer could be produced for this request."
)

// Caveat is appended to answers that never passed review.
func Caveat(iterations int) string {
	return fmt.Sprintf("CAVEAT: This answer did not pass review after %d revision attempt(s) and should be treated as unverified.", iterations)
}

// usable reports whether m can stand as an answer to the user.
func usable(m domain.Message) bool {
	if m.Role == domain.RoleUser || strings.TrimSpace(m.Content) == "" {
		return false
	}
	return m.Kind == domain.KindText || m.Kind == domain.KindToolResult
}

// synthesize settles on the best available answer. Answers that did not pass
// review carry a caveat. Walks that reach it without passing the risk assessor,
// such as a rejection at the ceiling, are scored here.
func (d Deps) synthesize(_ context.Context, s *domain.State) (domain.Delta, error) {
	out := domain.Delta{Status: domain.Ptr(domain.StatusSynthesizing)}
	if domain.ClassifyCritique(s.CritiqueReport) == domain.VerdictPass {
		return out, nil
	}

	caveat := Caveat(s.IterationCount)
	out.Caveat = &caveat
	d.Logger.Info("synthesizing unverified answer", "walk_id", s.WalkID, "iterations", s.IterationCount)

	var final domain.Message
	last, ok := s.LastMessage()
	replace := ok && usable(last)
	if replace {
		final = last
		final.Content += "\n\n" + caveat
	} else {
		best := NoAnswer
		if s.CountKind(domain.KindRejection) > 0 {
			best = DeclinedAnswer
		} else {
			for i := len(s.Messages) - 1; i >= 0; i-- {
				if usable(s.Messages[i]) {
					best = s.Messages[i].Content
					break
				}
			}
		}
		final = domain.Message{Role: domain.RoleAssistant, Content: best + "\n\n" + caveat}
	}

	score, report, high := d.classifyRisk(s, &final)
	if replace {
		out.ReplaceLast = &final
	} else {
		out.AppendMessages = []domain.Message{final}
	}
	if high || s.RiskReport == "" {
		out.RiskScore = &score
		out.RiskWarned = high
	}
	if s.RiskReport == "" {
		out.RiskReport = &report
	}
	return out, nil
}

func (d Deps) specialistOf(s *domain.State) domain.Specialist {
	if s.ActiveSpecialist != "" {
		return s.ActiveSpecialist
	}
	return domain.DefaultSpecialist
}

// fuse distils a lesson from the walk and stores it. Storage is best-effort.
func (d Deps) fuse(ctx context.Context, s *domain.State) (domain.Delta, error) {
	specialist := d.specialistOf(s)
	verdict := domain.ClassifyCritique(s.CritiqueReport)

	block := ""
	c, err := d.Oracle.Invoke(ctx, ports.Prompt{
		Purpose:    ports.PurposeFusion,
		Specialist: specialist,
		Messages:   s.Messages,
	})
	if err != nil {
		if ctx.Err() != nil {
			return domain.Delta{}, err
		}
		d.Logger.Warn("fusion oracle failed, using template lesson", "walk_id", s.WalkID, "err", err)
	} else {
		block = strings.TrimSpace(c.Content)
	}
	if block == "" {
		block = fmt.Sprintf("GENERALIZATION: On %s %s, the risk warning was the key. | REASON: Safety compliance is the optimal path.",
			specialist, strings.ToLower(string(verdict)))
	}

	if d.Knowledge != nil {
		lesson := ports.Lesson{
			WalkID:     s.WalkID,
			Specialist: specialist,
			Verdict:    verdict,
			Block:      block,
			Timestamp:  d.Clock(),
		}
		if err := d.Knowledge.SaveLesson(ctx, lesson); err != nil {
			d.Logger.Warn("knowledge sink write failed", "walk_id", s.WalkID, "err", err)
		}
	}
	return domain.Delta{FusionBlock: &block}, nil
}

// reflect nudges the specialist reputation by the critique verdict and logs a
// training example. The shared store is authoritative; the walk copy is the fallback.
func (d Deps) reflect(ctx context.Context, s *domain.State) (domain.Delta, error) {
	specialist := d.specialistOf(s)
	verdict := domain.ClassifyCritique(s.CritiqueReport)

	var score float64
	var err error
	if d.Reputation != nil {
		score, err = d.Reputation.Update(ctx, specialist, reputation.Nudger(verdict))
	}
	if d.Reputation == nil || err != nil {
		if err != nil {
			d.Logger.Warn("reputation store update failed, nudging walk copy", "walk_id", s.WalkID, "err", err)
		}
		current, ok := s.Reputation[specialist]
		if !ok {
			current = reputation.Neutral
		}
		score = reputation.Nudge(current, verdict)
	}
	d.Logger.Debug("reputation updated", "walk_id", s.WalkID, "specialist", specialist, "verdict", verdict, "score", score)

	if d.Training != nil {
		d.logTraining(ctx, s, specialist, verdict)
	}
	return domain.Delta{Reputation: map[domain.Specialist]float64{specialist: score}}, nil
}

func (d Deps) logTraining(ctx context.Context, s *domain.State, specialist domain.Specialist, verdict domain.Verdict) {
	ideal := s.FinalAnswer()
	c, err := d.Oracle.Invoke(ctx, ports.Prompt{
		Purpose:    ports.PurposeTraining,
		Specialist: specialist,
		Messages:   s.Messages,
	})
	if err == nil && strings.TrimSpace(c.Content) != "" {
		ideal = strings.TrimSpace(c.Content)
	}
	example := ports.TrainingExample{
		WalkID:        s.WalkID,
		Specialist:    specialist,
		Verdict:       verdict,
		Prompt:        s.OriginalQuery(),
		IdealResponse: ideal,
		Timestamp:     d.Clock(),
	}
	if err := d.Training.LogExample(ctx, example); err != nil {
		d.Logger.Warn("training sink write failed", "walk_id", s.WalkID, "err", err)
	}
}

// identify signs the final answer and appends the trust receipt. A signer failure
// leaves the sentinel signature in place; the walk carries on.
func (d Deps) identify(ctx context.Context, s *domain.State) (domain.Delta, error) {
	last, _ := s.LastMessage()
	did := ""
	signature := trust.SentinelSignature

	if d.Signer != nil {
		did = d.Signer.Identity()
		canonical := trust.CanonicalAnswer(last.Content, s.AuditHash, did)
		sig, err := d.Signer.Sign(ctx, canonical)
		switch {
		case err != nil:
			d.Logger.Warn("signing failed, using sentinel", "walk_id", s.WalkID, "err", err)
		case sig == "":
			d.Logger.Warn("signer returned an empty signature, using sentinel", "walk_id", s.WalkID)
		default:
			signature = sig
		}
	} else {
		d.Logger.Warn("no signer configured, using sentinel", "walk_id", s.WalkID)
	}

	last.Content += trust.Receipt(did, signature)
	return domain.Delta{
		Status:      domain.Ptr(domain.StatusAuditing),
		Signature:   &signature,
		ReplaceLast: &last,
	}, nil
}

// audit seals the walk with a hash over a fixed snapshot. Any hashing failure,
// panics included, yields the sentinel hash.
func (d Deps) audit(_ context.Context, s *domain.State) (domain.Delta, error) {
	snap := trust.NewAuditSnapshot(s.OriginalQuery(), s.FinalAnswer(), string(d.specialistOf(s)), s.RiskScore, s.Signature)
	hash := d.hash(s.WalkID, snap)
	return domain.Delta{
		Status:    domain.Ptr(domain.StatusAuditing),
		AuditHash: &hash,
	}, nil
}

func (d Deps) hash(walkID string, snap trust.AuditSnapshot) (hash string) {
	defer func() {
		if r := recover(); r != nil {
			d.Logger.Error("audit hashing panicked, using sentinel", "walk_id", walkID, "panic", r)
			hash = trust.SentinelAuditHash
		}
	}()
	h, err := d.Hasher.Hash(snap)
	if err != nil || h == "" {
		d.Logger.Error("audit hashing failed, using sentinel", "walk_id", walkID, "err", err)
		return trust.SentinelAuditHash
	}
	return h
}
