package runner

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingDeps is returned when a requirement manifest file is missing
// or empty. It marks a dependency resolution error.
var ErrMissingDeps = errors.New("missing dependencies")

// CommandError reports a command that exited non-zero. Commands after it
// in the same environment are not run.
type CommandError struct {
	Env      string
	Command  string
	Index    int
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: command %d (%s) exited %d", e.Env, e.Index, e.Command, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// DepsError reports a failed dependency installation for an environment.
type DepsError struct {
	Env    string
	Source string
	Err    error
}

func (e *DepsError) Error() string {
	return fmt.Sprintf("%s: deps %s: %v", e.Env, e.Source, e.Err)
}

func (e *DepsError) Unwrap() error {
	return e.Err
}
