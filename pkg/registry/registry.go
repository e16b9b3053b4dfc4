// Package registry holds the tools specialists and speculative tasks can invoke.
package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/aretw0/cognito/pkg/domain"
)

// ErrUnknownTool is wrapped when a name is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// ToolFunction defines the signature for a tool implementation.
// It receives a context and a map of arguments, and returns a textual result or error.
type ToolFunction func(ctx context.Context, args map[string]any) (string, error)

// ToolExecutionError wraps a failure raised by a tool implementation.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

type entry struct {
	tool domain.Tool
	fn   ToolFunction
}

// Registry manages the available tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]entry
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]entry),
	}
}

// Register adds a tool to the registry.
// If a tool with the same name exists, it is overwritten.
func (r *Registry) Register(tool domain.Tool, fn ToolFunction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = entry{tool: tool, fn: fn}
}

// Invoke looks up a tool by name and executes it.
//
// An unknown name is not an error: the caller gets a textual result it can fold into
// the walk history. Failures raised by the tool itself come back as *ToolExecutionError.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return UnknownToolResult(name), nil
	}

	out, err := e.fn(ctx, args)
	if err != nil {
		return "", &ToolExecutionError{Tool: name, Err: err}
	}
	return out, nil
}

// UnknownToolResult is the text returned for names that are not registered.
func UnknownToolResult(name string) string {
	return fmt.Sprintf("TOOL ERROR: %v '%s'.", ErrUnknownTool, name)
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Tools returns the registered descriptors sorted by name.
func (r *Registry) Tools() []domain.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Tool, 0, len(r.tools))
	for _, e := range r.tools {
		out = append(out, e.tool)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the registered tool names sorted.
func (r *Registry) Names() []string {
	tools := r.Tools()
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}

// Critical returns the names of tools flagged as critical.
func (r *Registry) Critical() []string {
	var names []string
	for _, t := range r.Tools() {
		if t.Critical {
			names = append(names, t.Name)
		}
	}
	return names
}

// Restrict returns a new registry without the excluded names and without any tool
// flagged critical. Speculative tasks only ever see a restricted registry.
func (r *Registry) Restrict(exclude ...string) *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := NewRegistry()
	for name, e := range r.tools {
		if e.tool.Critical || slices.Contains(exclude, name) {
			continue
		}
		out.tools[name] = e
	}
	return out
}
