// Package runner executes manifest environments: dependency installation
// into per-environment directories, then strictly sequential command
// execution with fail-fast semantics.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jlieth/legacy-scrobbler-go/internal/events"
	"github.com/jlieth/legacy-scrobbler-go/internal/manifest"
)

// envDirName is the per-environment isolation directory created under
// the working directory, one subdirectory per environment.
const envDirName = ".envrun"

// Options configures an Executor.
type Options struct {
	// WorkDir is the directory commands run in and the isolation
	// directory is created under. Defaults to the manifest directory.
	WorkDir string

	// Installer is the command prefix used to install dependencies
	// into an environment directory.
	Installer string

	// SkipInstall skips dependency installation entirely.
	SkipInstall bool

	// Runner executes commands. Defaults to the process runner.
	Runner CommandRunner

	// Bus receives lifecycle events. Optional.
	Bus *events.Bus

	// Environ is the ambient environment to filter passthrough
	// variables from. Defaults to os.Environ().
	Environ []string
}

// DefaultInstaller is the dependency installer invoked for environments
// that declare deps.
const DefaultInstaller = "pip install --quiet"

// Executor runs environments from a loaded manifest.
type Executor struct {
	manifest  *manifest.Manifest
	workDir   string
	installer string
	skip      bool
	runner    CommandRunner
	bus       *events.Bus
	environ   []string
}

// New creates an executor for the given manifest.
func New(m *manifest.Manifest, opts Options) *Executor {
	e := &Executor{
		manifest:  m,
		workDir:   opts.WorkDir,
		installer: opts.Installer,
		skip:      opts.SkipInstall,
		runner:    opts.Runner,
		bus:       opts.Bus,
		environ:   opts.Environ,
	}
	if e.workDir == "" {
		e.workDir = m.Dir
	}
	if e.installer == "" {
		e.installer = DefaultInstaller
	}
	if e.runner == nil {
		e.runner = DefaultRunner()
	}
	if e.environ == nil {
		e.environ = os.Environ()
	}
	return e
}

// Run executes the named environments. With parallel set, environments
// run concurrently, each in its own isolation directory; otherwise they
// run in the order given, stopping at the first failure. Commands within
// one environment are always strictly sequential.
func (e *Executor) Run(ctx context.Context, names []string, parallel bool) error {
	if len(names) == 0 {
		names = e.manifest.DefaultEnvs()
	}

	// Resolve everything up front so an unknown name fails before any
	// environment starts.
	resolved := make([]*manifest.ResolvedEnv, 0, len(names))
	for _, name := range names {
		r, err := e.manifest.Resolve(name)
		if err != nil {
			return err
		}
		resolved = append(resolved, r)
	}

	e.emit(events.NewEvent(events.RunStarted, "").WithPayload(names))

	var err error
	if parallel && len(resolved) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		for _, r := range resolved {
			r := r
			g.Go(func() error {
				return e.runEnv(gctx, r)
			})
		}
		err = g.Wait()
	} else {
		for i, r := range resolved {
			if err = e.runEnv(ctx, r); err != nil {
				for _, skipped := range resolved[i+1:] {
					e.emit(events.NewEvent(events.EnvSkipped, skipped.Name))
				}
				break
			}
		}
	}

	if err != nil {
		e.emit(events.NewEvent(events.RunFailed, "").WithError(err))
		return err
	}
	e.emit(events.NewEvent(events.RunCompleted, ""))
	return nil
}

// runEnv installs dependencies and executes the command sequence for one
// resolved environment.
func (e *Executor) runEnv(ctx context.Context, r *manifest.ResolvedEnv) error {
	e.emit(events.NewEvent(events.EnvStarted, r.Name).WithPayload(len(r.Commands)))

	if err := e.installDeps(ctx, r); err != nil {
		e.emit(events.NewEvent(events.EnvFailed, r.Name).WithError(err))
		return err
	}

	env := r.FilterEnviron(e.environ)
	for i, command := range r.Commands {
		e.emit(events.NewEvent(events.CommandStarted, r.Name).WithCommand(i).WithPayload(command))

		_, stderr, err := e.runner.Run(ctx, e.workDir, env, command)
		if err != nil {
			cmdErr := &CommandError{
				Env:      r.Name,
				Command:  command,
				Index:    i,
				ExitCode: exitCode(err),
				Stderr:   stderr,
			}
			e.emit(events.NewEvent(events.CommandFailed, r.Name).WithCommand(i).WithError(cmdErr))
			e.emit(events.NewEvent(events.EnvFailed, r.Name).WithError(cmdErr))
			return cmdErr
		}
		e.emit(events.NewEvent(events.CommandCompleted, r.Name).WithCommand(i))
	}

	e.emit(events.NewEvent(events.EnvCompleted, r.Name))
	return nil
}

// installDeps verifies requirement sources and installs them into the
// environment's isolation directory. The directory is reused across runs.
func (e *Executor) installDeps(ctx context.Context, r *manifest.ResolvedEnv) error {
	if err := CheckDeps(r); err != nil {
		e.emit(events.NewEvent(events.DepsFailed, r.Name).WithError(err))
		return err
	}
	if e.skip || len(r.Deps) == 0 {
		return nil
	}

	dir := e.EnvDir(r.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &DepsError{Env: r.Name, Source: dir, Err: err}
	}

	e.emit(events.NewEvent(events.DepsInstalling, r.Name).WithPayload(len(r.Deps)))

	args := make([]string, 0, len(r.Deps))
	for _, dep := range r.Deps {
		args = append(args, dep.String())
	}
	command := fmt.Sprintf("%s --target %s %s", e.installer, dir, strings.Join(args, " "))

	if _, stderr, err := e.runner.Run(ctx, e.workDir, e.environ, command); err != nil {
		depsErr := &DepsError{
			Env:    r.Name,
			Source: strings.Join(args, " "),
			Err:    fmt.Errorf("%v: %s", err, strings.TrimSpace(stderr)),
		}
		e.emit(events.NewEvent(events.DepsFailed, r.Name).WithError(depsErr))
		return depsErr
	}

	e.emit(events.NewEvent(events.DepsInstalled, r.Name))
	return nil
}

// EnvDir returns the isolation directory for an environment.
func (e *Executor) EnvDir(name string) string {
	return filepath.Join(e.workDir, envDirName, name)
}

// CheckDeps verifies that every requirement manifest file referenced by
// the environment exists and is non-empty.
func CheckDeps(r *manifest.ResolvedEnv) error {
	for _, dep := range r.Deps {
		if dep.Requirement == "" {
			continue
		}
		info, err := os.Stat(dep.Requirement)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMissingDeps, dep.Requirement, err)
		}
		if info.Size() == 0 {
			return fmt.Errorf("%w: %s is empty", ErrMissingDeps, dep.Requirement)
		}
	}
	return nil
}

func (e *Executor) emit(ev events.Event) {
	if e.bus != nil {
		e.bus.Emit(ev)
	}
}
