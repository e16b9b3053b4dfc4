package ports

import (
	"context"

	"github.com/aretw0/cognito/pkg/domain"
)

// Purpose tells the oracle which stage is asking.
type Purpose string

const (
	PurposeRouting     Purpose = "routing"
	PurposeSpecialist  Purpose = "specialist"
	PurposeCritique    Purpose = "critique"
	PurposeFusion      Purpose = "fusion"
	PurposeTraining    Purpose = "training"
	PurposeSpeculative Purpose = "speculative"
)

// Prompt is a single oracle request.
type Prompt struct {
	Purpose    Purpose
	Specialist domain.Specialist
	// Model is a hint; adapters fall back to their configured default.
	Model    string
	System   string
	Messages []domain.Message
	Tools    []domain.Tool
}

// RawToolCall is a tool call exactly as the back-end reported it, before validation.
type RawToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// Completion is the oracle answer. ToolCall is set when the back-end used native tool
// calling; otherwise a tool request may still be embedded in Content as JSON.
type Completion struct {
	Content  string
	ToolCall *RawToolCall
}

// ReasoningOracle is the language model behind every reasoning stage.
type ReasoningOracle interface {
	Invoke(ctx context.Context, prompt Prompt) (Completion, error)
}
