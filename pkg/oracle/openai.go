package oracle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/cognito/pkg/ports"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// OpenAI calls the OpenAI Responses API.
type OpenAI struct {
	client    openai.Client
	model     string
	maxTokens int64
}

// NewOpenAI creates an oracle for the given default model.
func NewOpenAI(apiKey, model string, opts ...option.RequestOption) *OpenAI {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAI{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: 1024,
	}
}

// Invoke sends the prompt as a single rendered input.
func (o *OpenAI) Invoke(ctx context.Context, p ports.Prompt) (ports.Completion, error) {
	model := o.model
	if p.Model != "" {
		model = p.Model
	}

	input := transcript(p.Messages)
	if sys := systemPrompt(p); sys != "" {
		input = "SYSTEM: " + sys + "\n" + input
	}

	params := responses.ResponseNewParams{
		Model:           model,
		MaxOutputTokens: openai.Int(o.maxTokens),
		Input:           responses.ResponseNewParamsInputUnion{OfString: openai.String(input)},
	}

	if len(p.Tools) > 0 {
		tools := make([]responses.ToolUnionParam, 0, len(p.Tools))
		for _, t := range p.Tools {
			schema := t.Parameters
			if schema == nil {
				schema = map[string]any{"type": "object", "properties": map[string]any{}}
			}
			tools = append(tools, responses.ToolUnionParam{
				OfFunction: &responses.FunctionToolParam{
					Name:        t.Name,
					Description: openai.String(t.Description),
					Parameters:  openai.FunctionParameters(schema),
				},
			})
		}
		params.Tools = tools
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return ports.Completion{}, fmt.Errorf("openai responses: %w", err)
	}
	if resp == nil {
		return ports.Completion{}, fmt.Errorf("openai responses: empty response")
	}

	out := ports.Completion{Content: resp.OutputText()}
	for i := range resp.Output {
		item := &resp.Output[i]
		if item.Type != "function_call" {
			continue
		}
		call := item.AsFunctionCall()
		var args map[string]any
		if call.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
				return ports.Completion{}, fmt.Errorf("openai tool arguments: %w", err)
			}
		}
		out.ToolCall = &ports.RawToolCall{ID: call.CallID, Name: call.Name, Args: args}
		break
	}
	return out, nil
}
