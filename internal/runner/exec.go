package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"sync"
)

// CommandRunner executes environment commands.
type CommandRunner interface {
	Run(ctx context.Context, dir string, env []string, command string) (stdout, stderr string, err error)
}

// osRunner executes real commands via exec.CommandContext and the shell.
type osRunner struct{}

func (osRunner) Run(ctx context.Context, dir string, env []string, command string) (string, string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

var (
	defaultRunner CommandRunner = osRunner{}
	runnerMu      sync.RWMutex
)

// DefaultRunner returns the current default command runner.
func DefaultRunner() CommandRunner {
	runnerMu.RLock()
	defer runnerMu.RUnlock()
	return defaultRunner
}

// SetDefaultRunner replaces the default command runner. Intended for tests.
func SetDefaultRunner(runner CommandRunner) {
	runnerMu.Lock()
	defer runnerMu.Unlock()
	if runner == nil {
		defaultRunner = osRunner{}
		return
	}
	defaultRunner = runner
}

// exitCode extracts the process exit code from a run error. Errors that
// carry no exit status (spawn failures, context cancellation) map to -1.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
