package envcli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jlieth/legacy-scrobbler-go/internal/events"
	"github.com/jlieth/legacy-scrobbler-go/internal/manifest"
	"github.com/jlieth/legacy-scrobbler-go/internal/runner"
	"github.com/jlieth/legacy-scrobbler-go/internal/tui"
)

// RunOptions holds flags for the run command
type RunOptions struct {
	Manifest    string // Manifest path (default: environments.yaml)
	Envs        []string
	Parallel    bool // Run requested environments concurrently
	SkipInstall bool // Skip dependency installation
	NoTUI       bool // Disable TUI even when stdout is a TTY
	JSON        bool // Emit events as JSON lines
}

// NewRunCmd creates the run command
func NewRunCmd(app *App) *cobra.Command {
	opts := RunOptions{
		Manifest: manifest.DefaultFile,
	}

	cmd := &cobra.Command{
		Use:   "run [envs...]",
		Short: "Execute one or more environments",
		Long: `Run resolves the requested environments from the manifest and executes
them. Without arguments the manifest's default environment list runs.
Environments run in order, stopping at the first failure; --parallel runs
them concurrently instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := append([]string{}, args...)
			for _, arg := range opts.Envs {
				for _, name := range strings.Split(arg, ",") {
					if name = strings.TrimSpace(name); name != "" {
						names = append(names, name)
					}
				}
			}
			return app.RunEnvironments(cmd.Context(), names, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Manifest, "manifest", manifest.DefaultFile, "Manifest file path")
	cmd.Flags().StringSliceVarP(&opts.Envs, "env", "e", nil, "Environments to run (comma separated)")
	cmd.Flags().BoolVar(&opts.Parallel, "parallel", false, "Run environments concurrently")
	cmd.Flags().BoolVar(&opts.SkipInstall, "skip-install", false, "Skip dependency installation")
	cmd.Flags().BoolVar(&opts.NoTUI, "no-tui", false, "Disable interactive TUI (use log output)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Emit events as JSON lines")

	return cmd
}

// RunEnvironments loads the manifest and executes the requested environments
func (a *App) RunEnvironments(ctx context.Context, names []string, opts RunOptions) error {
	m, err := manifest.Load(opts.Manifest)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bus := events.NewBus()
	defer bus.Close()

	useTUI := !opts.NoTUI && !opts.JSON && term.IsTerminal(int(os.Stdout.Fd()))

	var bridge *tui.Bridge
	var tuiDone chan struct{}
	if useTUI {
		model := tui.NewModel(0, opts.Parallel)
		program := tea.NewProgram(model)
		bridge = tui.NewBridge(program)
		bus.Subscribe(bridge.Handler())

		// Route the standard logger into the display while it is
		// active; stray log lines would otherwise corrupt the screen.
		log.SetOutput(tui.NewLogWriter(program))

		tuiDone = make(chan struct{})
		go func() {
			defer close(tuiDone)
			if _, err := program.Run(); err != nil {
				fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
			}
		}()
	} else if opts.JSON {
		bus.Subscribe(events.JSONEmitterHandler(events.NewJSONEmitter(os.Stdout)))
	} else {
		bus.Subscribe(events.LogHandler(events.LogConfig{IncludePayload: a.verbose}))
	}

	ex := runner.New(m, runner.Options{
		Bus:         bus,
		SkipInstall: opts.SkipInstall,
	})

	start := time.Now()
	runErr := ex.Run(ctx, names, opts.Parallel)

	if bridge != nil {
		bridge.SendDone()
		<-tuiDone
		log.SetOutput(os.Stderr)
	}
	if !opts.JSON {
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "\nFailed after %s: %v\n", time.Since(start).Round(time.Millisecond), runErr)
		} else {
			fmt.Fprintf(os.Stderr, "\nAll environments passed in %s\n", time.Since(start).Round(time.Millisecond))
		}
	}
	return runErr
}

// ExitCode maps an Execute error to the process exit status: command and
// dependency failures exit 1, configuration and usage errors exit 2.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cmdErr *runner.CommandError
	if errors.As(err, &cmdErr) {
		if cmdErr.ExitCode > 0 {
			return cmdErr.ExitCode
		}
		return 1
	}
	var depsErr *runner.DepsError
	if errors.As(err, &depsErr) || errors.Is(err, runner.ErrMissingDeps) {
		return 1
	}
	return 2
}
