package oracle

import (
	"fmt"
	"strings"

	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/ports"
)

// Shared system prompts. Adapters prepend them to Prompt.System.
var purposeInstructions = map[ports.Purpose]string{
	ports.PurposeRouting: "Reply with exactly one of: finance_expert, legal_expert, fitness_expert, " +
		"business_expert, health_expert, general_qa. Pick the best specialist for the user query.",
	ports.PurposeSpecialist: "Answer as the named specialist. To use a tool, reply only with JSON " +
		`{"tool_name": "<name>", "tool_args": {...}}.`,
	ports.PurposeCritique: "Review the last answer. Reply starting with PERFECT when it is accurate and safe, " +
		"or CRITICAL FAILURE followed by the reason.",
	ports.PurposeFusion:      "Distil one generalizable lesson from this exchange, starting with GENERALIZATION:.",
	ports.PurposeTraining:    "Produce a training pair as: TRAINING PROMPT (Expert: <id>): <prompt> | IDEAL RESPONSE: <answer>.",
	ports.PurposeSpeculative: "Turn the background task into a single tool call using the JSON tool format.",
}

func systemPrompt(p ports.Prompt) string {
	parts := []string{}
	if inst, ok := purposeInstructions[p.Purpose]; ok {
		parts = append(parts, inst)
	}
	if p.Specialist != "" {
		parts = append(parts, fmt.Sprintf("Specialist: %s.", p.Specialist))
	}
	if p.System != "" {
		parts = append(parts, p.System)
	}
	return strings.Join(parts, "\n")
}

// renderMessage flattens tool traffic into text so any back-end can read it.
func renderMessage(m domain.Message) string {
	switch m.Kind {
	case domain.KindToolRequest:
		if m.ToolCall != nil {
			return fmt.Sprintf("[requested tool %s with %v]", m.ToolCall.Name, m.ToolCall.Args)
		}
	case domain.KindRejection:
		return "[HUMAN REVIEW] " + m.Content
	}
	return m.Content
}

func transcript(msgs []domain.Message) string {
	var sb strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&sb, "%s: %s\n", strings.ToUpper(string(m.Role)), renderMessage(m))
	}
	return sb.String()
}
