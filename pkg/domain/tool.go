package domain

import "maps"

// ToolCall is a structured request to run a named tool.
type ToolCall struct {
	ID   string         `json:"id" mapstructure:"id"`
	Name string         `json:"name" mapstructure:"name"`
	Args map[string]any `json:"args,omitempty" mapstructure:"args"`
}

// Clone returns a copy with its own argument map.
func (c *ToolCall) Clone() *ToolCall {
	if c == nil {
		return nil
	}
	out := *c
	out.Args = maps.Clone(c.Args)
	return &out
}

// Tool describes a tool available to specialists.
type Tool struct {
	Name        string         `json:"name" yaml:"name" mapstructure:"name"`
	Description string         `json:"description" yaml:"description" mapstructure:"description"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty" mapstructure:"parameters"`
	// Critical tools never run without a human APPROVE.
	Critical bool `json:"critical,omitempty" yaml:"critical,omitempty" mapstructure:"critical"`
}

// ActionTypeCriticalApproval is the action type carried by every pending approval.
const ActionTypeCriticalApproval = "Critical Action Approval Required"

// PendingApproval is set on a walk suspended before a critical action.
type PendingApproval struct {
	ActionType    string         `json:"action_type"`
	ToolCall      ToolCall       `json:"tool_call"`
	Summary       string         `json:"summary"`
	Args          map[string]any `json:"args,omitempty"`
	RiskRationale string         `json:"risk_rationale"`
	Specialist    Specialist     `json:"specialist,omitempty"`
	// ResumeNode is where an APPROVE re-enters the walk.
	ResumeNode  string `json:"resume_node"`
	RequestedAt int64  `json:"requested_at"`
}

// Clone returns a deep copy.
func (p *PendingApproval) Clone() *PendingApproval {
	if p == nil {
		return nil
	}
	out := *p
	out.ToolCall = *p.ToolCall.Clone()
	out.Args = maps.Clone(p.Args)
	return &out
}

// SpeculativeStatus tags the outcome of one background task.
type SpeculativeStatus string

const (
	SpeculativeSuccess SpeculativeStatus = "SUCCESS"
	SpeculativeFailure SpeculativeStatus = "FAILURE"
)

// SpeculativeResult is the outcome of one speculative task.
type SpeculativeResult struct {
	Task   string            `json:"task"`
	Status SpeculativeStatus `json:"status"`
	Output string            `json:"output,omitempty"`
	Error  string            `json:"error,omitempty"`
}

func (r SpeculativeResult) String() string {
	if r.Status == SpeculativeSuccess {
		return "SUCCESS: " + r.Output
	}
	return "FAILURE: " + r.Error
}
