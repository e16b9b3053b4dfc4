// Package process exposes allow-listed local commands as registry tools.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/registry"
)

// ArgPrefix prefixes the environment variables carrying tool arguments.
const ArgPrefix = "COGNITO_ARG_"

// Runner executes registered commands. Only names in its allow-list can run.
type Runner struct {
	procs   map[string]ProcessConfig
	baseDir string
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithTools populates the allow-list from a loaded config.
func WithTools(tools []ProcessConfig) RunnerOption {
	return func(r *Runner) {
		for _, t := range tools {
			r.procs[t.Name] = t
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// NewRunner creates a new process runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{procs: make(map[string]ProcessConfig)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(cfg ProcessConfig) {
	r.procs[cfg.Name] = cfg
}

// Install registers every allow-listed command as a tool in reg.
func (r *Runner) Install(reg *registry.Registry) {
	for name, p := range r.procs {
		reg.Register(domain.Tool{
			Name:        name,
			Description: p.Description,
			Critical:    p.Critical,
		}, func(ctx context.Context, args map[string]any) (string, error) {
			return r.Execute(ctx, name, args)
		})
	}
}

// Execute runs the named command. Arguments travel as COGNITO_ARG_<KEY> environment
// variables, never as command-line flags, so a model cannot inject options.
func (r *Runner) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	p, ok := r.procs[name]
	if !ok {
		return "", fmt.Errorf("process tool not registered: %s", name)
	}

	cmd := exec.CommandContext(ctx, p.Command, p.Args...)
	cmd.Dir = r.baseDir
	env := cmd.Environ()
	for k, v := range p.Environment {
		env = append(env, k+"="+v)
	}
	for k, v := range args {
		env = append(env, ArgPrefix+strings.ToUpper(k)+"="+envValue(v))
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("execution failed: %w. Stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func envValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int, int64, float64, bool:
		return fmt.Sprintf("%v", v)
	default:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", v)
	}
}
