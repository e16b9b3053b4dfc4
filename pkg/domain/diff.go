package domain

// StateDiff represents the changes between two walk snapshots.
// It is serialized into audit transition records and walk API responses.
type StateDiff struct {
	// WalkID is always present to identify the target.
	WalkID string `json:"walk_id"`

	CurrentNode    *string  `json:"current_node,omitempty"`
	Status         *Status  `json:"status,omitempty"`
	IterationCount *int     `json:"iteration_count,omitempty"`
	TargetRoute    *string  `json:"target_route,omitempty"`
	RiskScore      *float64 `json:"risk_score,omitempty"`
	AuditHash      *string  `json:"audit_hash,omitempty"`
	Signature      *string  `json:"signature,omitempty"`
	Suspended      *bool    `json:"suspended,omitempty"`

	Messages *MessageDelta `json:"messages,omitempty"`
	History  *HistoryDelta `json:"history,omitempty"`
}

// MessageDelta describes how the message history changed.
// History is append-only, so a rewrite can only ever touch the last entry.
type MessageDelta struct {
	Appended     []Message `json:"appended,omitempty"`
	ReplacedLast bool      `json:"replaced_last,omitempty"`
}

// HistoryDelta represents nodes appended to the visited path.
type HistoryDelta struct {
	Appended []string `json:"appended"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
// It returns nil when nothing changed.
func Diff(oldState, newState *State) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{WalkID: newState.WalkID}
	if oldState == nil {
		oldState = &State{}
		if newState.Status != "" {
			diff.Status = &newState.Status
		}
	} else if oldState.Status != newState.Status {
		diff.Status = &newState.Status
	}

	if oldState.CurrentNode != newState.CurrentNode {
		diff.CurrentNode = &newState.CurrentNode
	}
	if oldState.IterationCount != newState.IterationCount {
		diff.IterationCount = &newState.IterationCount
	}
	if oldState.TargetRoute != newState.TargetRoute {
		diff.TargetRoute = &newState.TargetRoute
	}
	if oldState.RiskScore != newState.RiskScore {
		diff.RiskScore = &newState.RiskScore
	}
	if oldState.AuditHash != newState.AuditHash {
		diff.AuditHash = &newState.AuditHash
	}
	if oldState.Signature != newState.Signature {
		diff.Signature = &newState.Signature
	}
	if oldState.Suspended() != newState.Suspended() {
		v := newState.Suspended()
		diff.Suspended = &v
	}

	diff.Messages = diffMessages(oldState, newState)
	diff.History = diffHistory(oldState, newState)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffMessages(old, new *State) *MessageDelta {
	oldLen, newLen := len(old.Messages), len(new.Messages)
	delta := &MessageDelta{}

	if oldLen > 0 && newLen >= oldLen && old.Messages[oldLen-1].Content != new.Messages[oldLen-1].Content {
		delta.ReplacedLast = true
	}
	if newLen > oldLen {
		delta.Appended = new.Messages[oldLen:]
	}

	if !delta.ReplacedLast && len(delta.Appended) == 0 {
		return nil
	}
	return delta
}

// diffHistory assumes standard append-only behavior for History.
func diffHistory(old, new *State) *HistoryDelta {
	if len(new.History) > len(old.History) {
		return &HistoryDelta{Appended: new.History[len(old.History):]}
	}
	return nil
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.CurrentNode == nil &&
		d.Status == nil &&
		d.IterationCount == nil &&
		d.TargetRoute == nil &&
		d.RiskScore == nil &&
		d.AuditHash == nil &&
		d.Signature == nil &&
		d.Suspended == nil &&
		d.Messages == nil &&
		d.History == nil
}
