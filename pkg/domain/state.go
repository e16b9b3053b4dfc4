package domain

import (
	"maps"
	"slices"
	"time"
)

// Status is the lifecycle position of a walk.
// Suspension is not a status: a suspended walk keeps its status and carries a PendingApproval.
type Status string

const (
	StatusEntry        Status = "entry"
	StatusRouting      Status = "routing"
	StatusExecuting    Status = "executing"
	StatusReflecting   Status = "reflecting"
	StatusRevising     Status = "revising"
	StatusSynthesizing Status = "synthesizing"
	StatusAuditing     Status = "auditing"
	StatusTerminated   Status = "terminated"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// MessageKind tags entries that are not plain conversation text.
type MessageKind string

const (
	KindText        MessageKind = ""
	KindToolRequest MessageKind = "tool_request"
	KindToolResult  MessageKind = "tool_result"
	KindToolError   MessageKind = "tool_error"
	KindRejection   MessageKind = "rejection"
)

// Message is one entry of the walk history.
type Message struct {
	Role       Role        `json:"role"`
	Content    string      `json:"content"`
	Kind       MessageKind `json:"kind,omitempty"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
}

// NeutralReputation seeds every specialist score of a new walk.
const NeutralReputation = 0.5

// State represents the current snapshot of one walk.
type State struct {
	WalkID   string `json:"walk_id"`
	UserID   string `json:"user_id,omitempty"`
	RawInput string `json:"raw_input"`

	// CurrentNode is the next node to execute. Empty once terminated.
	CurrentNode string `json:"current_node"`
	Status      Status `json:"status"`

	// History is the path of nodes already executed.
	History []string `json:"history,omitempty"`

	// Messages is append-only; only the last entry may be replaced.
	Messages []Message `json:"messages"`

	IterationCount   int        `json:"iteration_count"`
	TargetRoute      string     `json:"target_route,omitempty"`
	ActiveSpecialist Specialist `json:"active_specialist,omitempty"`

	Modality        string `json:"modality,omitempty"`
	Language        string `json:"language,omitempty"`
	CulturalContext string `json:"cultural_context,omitempty"`
	Intent          string `json:"intent,omitempty"`
	Model           string `json:"model,omitempty"`

	RiskScore      float64 `json:"risk_score"`
	RiskReport     string  `json:"risk_report,omitempty"`
	RiskWarned     bool    `json:"risk_warned,omitempty"`
	CritiqueReport string  `json:"critique_report,omitempty"`
	FusionBlock    string  `json:"fusion_block,omitempty"`
	Caveat         string  `json:"caveat,omitempty"`

	Reputation map[Specialist]float64 `json:"reputation,omitempty"`

	SpeculativeQueue   []string                     `json:"speculative_queue,omitempty"`
	SpeculativeResults map[string]SpeculativeResult `json:"speculative_results,omitempty"`

	PendingToolCall *ToolCall        `json:"pending_tool_call,omitempty"`
	PendingApproval *PendingApproval `json:"pending_approval,omitempty"`
	// ApprovedCallID marks the pending tool call a human approved.
	ApprovedCallID string `json:"approved_call_id,omitempty"`

	AuditHash string `json:"audit_hash,omitempty"`
	Signature string `json:"signature,omitempty"`

	Steps     int       `json:"steps"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState creates a walk at entry with every specialist seeded at neutral reputation.
func NewState(walkID, userID, rawInput string) *State {
	rep := make(map[Specialist]float64, len(Specialists()))
	for _, s := range Specialists() {
		rep[s] = NeutralReputation
	}
	return &State{
		WalkID:             walkID,
		UserID:             userID,
		RawInput:           rawInput,
		Status:             StatusEntry,
		Messages:           []Message{},
		Reputation:         rep,
		SpeculativeResults: map[string]SpeculativeResult{},
	}
}

// Clone returns a deep copy. Nodes always receive a clone.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.History = slices.Clone(s.History)
	out.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		m.ToolCall = m.ToolCall.Clone()
		out.Messages[i] = m
	}
	out.Reputation = maps.Clone(s.Reputation)
	out.SpeculativeQueue = slices.Clone(s.SpeculativeQueue)
	out.SpeculativeResults = maps.Clone(s.SpeculativeResults)
	out.PendingToolCall = s.PendingToolCall.Clone()
	out.PendingApproval = s.PendingApproval.Clone()
	return &out
}

// Suspended reports whether the walk is waiting for a human decision.
func (s *State) Suspended() bool { return s.PendingApproval != nil }

// Terminated reports whether the walk reached the end of the graph.
func (s *State) Terminated() bool { return s.Status == StatusTerminated }

// LastMessage returns the most recent history entry.
func (s *State) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// OriginalQuery is the first user message, falling back to the raw input.
func (s *State) OriginalQuery() string {
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			return m.Content
		}
	}
	return s.RawInput
}

// FinalAnswer is the content of the last history entry.
func (s *State) FinalAnswer() string {
	m, _ := s.LastMessage()
	return m.Content
}

// CountKind counts history entries of the given kind.
func (s *State) CountKind(kind MessageKind) int {
	n := 0
	for _, m := range s.Messages {
		if m.Kind == kind {
			n++
		}
	}
	return n
}

// MergeSpeculative writes the results of a speculative batch and clears the queue in
// the same call. Callers hold the walk lock so readers never observe one without the other.
func (s *State) MergeSpeculative(results map[string]SpeculativeResult) {
	if s.SpeculativeResults == nil {
		s.SpeculativeResults = make(map[string]SpeculativeResult, len(results))
	}
	for task, r := range results {
		s.SpeculativeResults[task] = r
	}
	s.SpeculativeQueue = nil
}
