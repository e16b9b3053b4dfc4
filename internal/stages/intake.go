package stages

import (
	"context"
	"slices"
	"strings"

	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/ports"
)

// Mock decodings of non-text inputs.
const (
	ImageDecoding = "OCR result: 'The graph shows a 5% increase in Q3.'"
	AudioDecoding = "Transcription: 'I need a compliance check for HIPAA.'"
)

// decode normalizes the raw input into the first user message.
func (d Deps) decode(_ context.Context, s *domain.State) (domain.Delta, error) {
	modality, text := "text", s.RawInput
	switch {
	case strings.HasPrefix(s.RawInput, "image:"):
		modality, text = "image", ImageDecoding
	case strings.HasPrefix(s.RawInput, "audio:"):
		modality, text = "audio", AudioDecoding
	}
	return domain.Delta{
		Status:         domain.Ptr(domain.StatusRouting),
		Modality:       &modality,
		AppendMessages: []domain.Message{{Role: domain.RoleUser, Content: text}},
	}, nil
}

// contextualize records language and cultural context. Only English is recognized.
func (d Deps) contextualize(_ context.Context, _ *domain.State) (domain.Delta, error) {
	return domain.Delta{
		Language:        domain.Ptr("en"),
		CulturalContext: domain.Ptr("general"),
	}, nil
}

var questionWords = []string{"what", "how", "why", "when", "where", "who", "which", "should", "can", "is", "are", "do", "does"}

var actionWords = []string{"delete", "send", "run", "execute", "remove", "drop"}

// detectIntent tags the query as a question, an action request or a statement.
func (d Deps) detectIntent(_ context.Context, s *domain.State) (domain.Delta, error) {
	q := strings.ToLower(strings.TrimSpace(s.OriginalQuery()))
	first := ""
	if f := strings.Fields(q); len(f) > 0 {
		first = strings.Trim(f[0], ".,;:!?")
	}

	intent := "statement"
	switch {
	case slices.Contains(actionWords, first) || (first == "please" && containsAny(q, actionWords...)):
		intent = "action"
	case strings.HasSuffix(q, "?") || slices.Contains(questionWords, first):
		intent = "question"
	}
	return domain.Delta{Intent: &intent}, nil
}

// route picks the target specialist. An explicit target wins; otherwise the oracle
// decides. Labels outside the closed set are kept as-is and resolved by the
// conditional edge's fallback.
func (d Deps) route(ctx context.Context, s *domain.State) (domain.Delta, error) {
	if s.TargetRoute != "" {
		d.Logger.Debug("explicit route requested", "walk_id", s.WalkID, "target", s.TargetRoute)
		return domain.Delta{TargetRoute: domain.Ptr(strings.ToLower(strings.TrimSpace(s.TargetRoute)))}, nil
	}

	c, err := d.Oracle.Invoke(ctx, ports.Prompt{
		Purpose:  ports.PurposeRouting,
		Messages: s.Messages,
	})
	if err != nil {
		if ctx.Err() != nil {
			return domain.Delta{}, err
		}
		d.Logger.Warn("routing oracle failed, using default specialist", "walk_id", s.WalkID, "err", err)
		return domain.Delta{TargetRoute: domain.Ptr(string(domain.DefaultSpecialist))}, nil
	}
	target := strings.ToLower(strings.TrimSpace(c.Content))
	d.Logger.Debug("routed", "walk_id", s.WalkID, "target", target)
	return domain.Delta{TargetRoute: &target}, nil
}

// selectModel escalates regulated or poorly performing specialists to the strong model.
// The reputation check only logs and escalates; it never reroutes.
func (d Deps) selectModel(_ context.Context, s *domain.State) (domain.Delta, error) {
	target, ok := domain.ParseSpecialist(s.TargetRoute)
	if !ok {
		target = domain.DefaultSpecialist
	}

	model := d.Policy.Models.Default
	if d.Policy.regulated(target) {
		model = d.Policy.Models.Strong
	}
	score, known := s.Reputation[target]
	if !known {
		score = domain.NeutralReputation
	}
	if score < d.Policy.ReputationFloor {
		d.Logger.Warn("low specialist reputation", "walk_id", s.WalkID, "specialist", target, "score", score)
		model = d.Policy.Models.Strong
	}
	return domain.Delta{Model: &model}, nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
