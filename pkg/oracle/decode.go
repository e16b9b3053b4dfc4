package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/ports"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Kind tags the variant of a decoded completion.
type Kind int

const (
	// PlainAnswer is free text meant for the user.
	PlainAnswer Kind = iota
	// ToolCallIntent is a validated request to run a registered tool.
	ToolCallIntent
	// DecodeFailure is a tool request that did not match the schema.
	// Callers treat it as a plain answer.
	DecodeFailure
)

func (k Kind) String() string {
	switch k {
	case ToolCallIntent:
		return "tool_call"
	case DecodeFailure:
		return "decode_failure"
	default:
		return "plain"
	}
}

// Decoded is the result of Decode. Text always carries the raw content.
type Decoded struct {
	Kind     Kind
	Text     string
	ToolCall *domain.ToolCall
	Err      error
}

// toolRequest is the schema tool requests must match.
// tool_query is the older single-argument shape and is folded into tool_args.
type toolRequest struct {
	ToolName  string         `mapstructure:"tool_name" validate:"required,known_tool"`
	ToolArgs  map[string]any `mapstructure:"tool_args" validate:"required"`
	ToolQuery string         `mapstructure:"tool_query"`
	ID        string         `mapstructure:"id"`
}

// Decoder validates oracle output against the registered tool names.
type Decoder struct {
	validate *validator.Validate
	allowed  map[string]struct{}
}

// NewDecoder builds a decoder accepting only the given tool names.
func NewDecoder(toolNames []string) *Decoder {
	d := &Decoder{
		validate: validator.New(),
		allowed:  make(map[string]struct{}, len(toolNames)),
	}
	for _, n := range toolNames {
		d.allowed[n] = struct{}{}
	}
	if err := d.validate.RegisterValidation("known_tool", d.knownTool); err != nil {
		panic(err)
	}
	return d
}

func (d *Decoder) knownTool(fl validator.FieldLevel) bool {
	_, ok := d.allowed[fl.Field().String()]
	return ok
}

// Decode turns a completion into one of the three variants.
func (d *Decoder) Decode(c ports.Completion) Decoded {
	if c.ToolCall != nil {
		args := c.ToolCall.Args
		if args == nil {
			args = map[string]any{}
		}
		return d.decodeRaw(c.Content, map[string]any{
			"tool_name": c.ToolCall.Name,
			"tool_args": args,
			"id":        c.ToolCall.ID,
		})
	}

	raw, ok := embeddedObject(c.Content)
	if !ok {
		return Decoded{Kind: PlainAnswer, Text: c.Content}
	}
	if _, isTool := raw["tool_name"]; !isTool {
		return Decoded{Kind: PlainAnswer, Text: c.Content}
	}
	return d.decodeRaw(c.Content, raw)
}

func (d *Decoder) decodeRaw(content string, raw map[string]any) Decoded {
	var req toolRequest
	if err := mapstructure.Decode(raw, &req); err != nil {
		return failure(content, fmt.Errorf("decode tool request: %w", err))
	}
	if req.ToolArgs == nil && req.ToolQuery != "" {
		req.ToolArgs = map[string]any{"query": req.ToolQuery}
	}
	if err := d.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			err = fmt.Errorf("field %s failed %s", verrs[0].Field(), verrs[0].Tag())
		}
		return failure(content, fmt.Errorf("invalid tool request: %w", err))
	}
	return Decoded{
		Kind:     ToolCallIntent,
		Text:     content,
		ToolCall: &domain.ToolCall{ID: req.ID, Name: req.ToolName, Args: req.ToolArgs},
	}
}

func failure(content string, err error) Decoded {
	return Decoded{Kind: DecodeFailure, Text: content, Err: err}
}

// embeddedObject extracts the outermost JSON object in s, tolerating code fences
// and prose around it.
func embeddedObject(s string) (map[string]any, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(s[start:end+1]), &out); err != nil {
		return nil, false
	}
	return out, true
}
