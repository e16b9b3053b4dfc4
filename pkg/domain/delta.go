package domain

import "fmt"

// Delta is the partial update a node returns. Nil pointers and zero flags mean
// "leave unchanged", so a node only describes what it touched.
type Delta struct {
	Status *Status

	// ReplaceLast rewrites the newest message. It is applied before AppendMessages.
	ReplaceLast    *Message
	AppendMessages []Message

	TargetRoute      *string
	ActiveSpecialist *Specialist

	Modality        *string
	Language        *string
	CulturalContext *string
	Intent          *string
	Model           *string

	RiskScore      *float64
	RiskReport     *string
	RiskWarned     bool
	CritiqueReport *string
	FusionBlock    *string
	Caveat         *string

	// Reputation entries are merged key by key.
	Reputation map[Specialist]float64

	PendingToolCall      *ToolCall
	ClearPendingToolCall bool

	AuditHash *string
	Signature *string
}

// Ptr is a small helper for building deltas inline.
func Ptr[T any](v T) *T { return &v }

// Apply merges d into s. Fields the delta leaves nil are preserved.
//
// Apply enforces the history and audit invariants: messages are only appended or the
// last one replaced, AuditHash and Signature are set once, and the risk score never
// drops after a warning was injected.
func (s *State) Apply(d Delta) error {
	if d.AuditHash != nil && s.AuditHash != "" && s.AuditHash != *d.AuditHash {
		return fmt.Errorf("%w: audit_hash", ErrImmutableField)
	}
	if d.Signature != nil && s.Signature != "" && s.Signature != *d.Signature {
		return fmt.Errorf("%w: signature", ErrImmutableField)
	}

	if d.Status != nil {
		s.Status = *d.Status
	}

	if d.ReplaceLast != nil {
		msg := *d.ReplaceLast
		msg.ToolCall = msg.ToolCall.Clone()
		if n := len(s.Messages); n > 0 {
			s.Messages[n-1] = msg
		} else {
			s.Messages = append(s.Messages, msg)
		}
	}
	for _, m := range d.AppendMessages {
		m.ToolCall = m.ToolCall.Clone()
		s.Messages = append(s.Messages, m)
	}

	setString(&s.TargetRoute, d.TargetRoute)
	if d.ActiveSpecialist != nil {
		s.ActiveSpecialist = *d.ActiveSpecialist
	}
	setString(&s.Modality, d.Modality)
	setString(&s.Language, d.Language)
	setString(&s.CulturalContext, d.CulturalContext)
	setString(&s.Intent, d.Intent)
	setString(&s.Model, d.Model)

	if d.RiskScore != nil && (!s.RiskWarned || *d.RiskScore >= s.RiskScore) {
		s.RiskScore = *d.RiskScore
	}
	if d.RiskWarned {
		s.RiskWarned = true
	}
	setString(&s.RiskReport, d.RiskReport)
	setString(&s.CritiqueReport, d.CritiqueReport)
	setString(&s.FusionBlock, d.FusionBlock)
	setString(&s.Caveat, d.Caveat)

	if len(d.Reputation) > 0 {
		if s.Reputation == nil {
			s.Reputation = make(map[Specialist]float64, len(d.Reputation))
		}
		for k, v := range d.Reputation {
			s.Reputation[k] = v
		}
	}

	if d.ClearPendingToolCall {
		s.PendingToolCall = nil
		s.ApprovedCallID = ""
	}
	if d.PendingToolCall != nil {
		s.PendingToolCall = d.PendingToolCall.Clone()
	}

	setString(&s.AuditHash, d.AuditHash)
	setString(&s.Signature, d.Signature)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
