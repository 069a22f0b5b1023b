// Package envcli wires the envrun command line interface.
package envcli

import (
	"github.com/spf13/cobra"
)

// App represents the envrun CLI application
type App struct {
	rootCmd *cobra.Command

	verbose bool

	// Version information
	version string
	commit  string
	date    string
}

// New creates a new CLI application
func New() *App {
	app := &App{}
	app.setupRootCmd()
	return app
}

// Execute runs the CLI application
func (a *App) Execute() error {
	return a.rootCmd.Execute()
}

// SetVersion sets the version strings for the version command
func (a *App) SetVersion(version, commit, date string) {
	a.version = version
	a.commit = commit
	a.date = date
}

// setupRootCmd configures the root Cobra command
func (a *App) setupRootCmd() {
	a.rootCmd = &cobra.Command{
		Use:   "envrun",
		Short: "Run named command environments from a manifest",
		Long: `envrun executes named environments declared in a YAML manifest:
each environment installs its dependencies into an isolated directory and
runs its command sequence with a filtered process environment, stopping at
the first failure.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	a.rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false,
		"Verbose output")

	a.rootCmd.AddCommand(NewRunCmd(a))
	a.rootCmd.AddCommand(NewListCmd(a))
	a.rootCmd.AddCommand(NewVersionCmd(a))
}
