package process_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/aretw0/cognito/pkg/adapters/process"
	"github.com/aretw0/cognito/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shell(t *testing.T, script string) process.ProcessConfig {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	return process.ProcessConfig{Command: "sh", Args: []string{"-c", script}}
}

func TestRunner_Execute(t *testing.T) {
	runner := process.NewRunner()

	echo := shell(t, "echo $COGNITO_ARG_MSG $GREETING")
	echo.Name = "echo_env"
	echo.Environment = map[string]string{"GREETING": "hi"}
	runner.Register(echo)

	t.Run("Passes Arguments via Env Vars", func(t *testing.T) {
		out, err := runner.Execute(context.Background(), "echo_env", map[string]any{"msg": "SecretMessage"})
		require.NoError(t, err)
		assert.Equal(t, "SecretMessage hi", out)
	})

	t.Run("Fails For Unregistered Command", func(t *testing.T) {
		_, err := runner.Execute(context.Background(), "hacker_script", nil)
		assert.ErrorContains(t, err, "not registered")
	})

	t.Run("Reports Stderr", func(t *testing.T) {
		fail := shell(t, "echo broken >&2; exit 3")
		fail.Name = "fail"
		runner.Register(fail)
		_, err := runner.Execute(context.Background(), "fail", nil)
		assert.ErrorContains(t, err, "broken")
	})
}

func TestRunner_InstallIntoRegistry(t *testing.T) {
	cfg := shell(t, "echo pong")
	cfg.Name = "ping"
	cfg.Critical = true

	reg := registry.NewRegistry()
	process.NewRunner(process.WithTools([]process.ProcessConfig{cfg})).Install(reg)

	require.True(t, reg.Has("ping"))
	assert.Contains(t, reg.Critical(), "ping")
	out, err := reg.Invoke(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, "pong", out)
}

func TestLoadTools(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tools.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tools:
  - name: disk_usage
    command: df
    args: ["-h"]
    description: Report disk usage
  - name: ""
    command: ignored
`), 0o644))

	tools, err := process.LoadTools(path)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "disk_usage", tools[0].Name)
	assert.Equal(t, []string{"-h"}, tools[0].Args)

	missing, err := process.LoadTools(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}
