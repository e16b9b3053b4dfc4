package oracle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/ports"
)

// Anthropic calls the Anthropic Messages API.
type Anthropic struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropic creates an oracle for the given default model.
func NewAnthropic(apiKey, model string, opts ...option.RequestOption) *Anthropic {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Anthropic{
		client:    anthropic.NewClient(opts...),
		model:     anthropic.Model(model),
		maxTokens: 1024,
	}
}

// Invoke sends the walk history as alternating user/assistant turns.
func (a *Anthropic) Invoke(ctx context.Context, p ports.Prompt) (ports.Completion, error) {
	model := a.model
	if p.Model != "" {
		model = anthropic.Model(p.Model)
	}

	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: a.maxTokens,
		Messages:  alternate(p.Messages),
	}
	if sys := systemPrompt(p); sys != "" {
		params.System = []anthropic.TextBlockParam{{Text: sys, Type: "text"}}
	}

	if len(p.Tools) > 0 {
		tools := make([]anthropic.ToolUnionParam, 0, len(p.Tools))
		for _, t := range p.Tools {
			var properties any
			if props, ok := t.Parameters["properties"]; ok {
				properties = props
			}
			schema := anthropic.ToolInputSchemaParam{Type: "object", Properties: properties}
			tools = append(tools, anthropic.ToolUnionParamOfTool(schema, t.Name))
		}
		params.Tools = tools
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return ports.Completion{}, fmt.Errorf("anthropic messages: %w", err)
	}
	if resp == nil || len(resp.Content) == 0 {
		return ports.Completion{}, fmt.Errorf("anthropic messages: empty response")
	}

	var out ports.Completion
	for i := range resp.Content {
		block := &resp.Content[i]
		switch block.Type {
		case "text":
			out.Content += block.AsText().Text
		case "tool_use":
			if out.ToolCall != nil {
				continue
			}
			use := block.AsToolUse()
			var args map[string]any
			if err := json.Unmarshal(use.Input, &args); err != nil {
				return ports.Completion{}, fmt.Errorf("anthropic tool input: %w", err)
			}
			out.ToolCall = &ports.RawToolCall{ID: use.ID, Name: use.Name, Args: args}
		}
	}
	return out, nil
}

// alternate folds the walk history into strictly alternating turns starting with the user.
// Tool traffic is rendered as text on the user side.
func alternate(msgs []domain.Message) []anthropic.MessageParam {
	type turn struct {
		role anthropic.MessageParamRole
		text string
	}
	var turns []turn
	for _, m := range msgs {
		role := anthropic.MessageParamRoleUser
		if m.Role == domain.RoleAssistant && m.Kind == domain.KindText {
			role = anthropic.MessageParamRoleAssistant
		}
		text := renderMessage(m)
		if len(turns) > 0 && turns[len(turns)-1].role == role {
			turns[len(turns)-1].text += "\n\n" + text
			continue
		}
		turns = append(turns, turn{role: role, text: text})
	}
	if len(turns) == 0 || turns[0].role != anthropic.MessageParamRoleUser {
		turns = append([]turn{{role: anthropic.MessageParamRoleUser, text: "(no user message)"}}, turns...)
	}

	out := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		out = append(out, anthropic.MessageParam{
			Role:    t.role,
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(t.text)},
		})
	}
	return out
}
