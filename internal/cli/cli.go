// Package cli wires the scrobbler daemon command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/jlieth/legacy-scrobbler-go/internal/config"
)

// App represents the scrobbler CLI application
type App struct {
	rootCmd *cobra.Command

	configPath string
	verbose    bool

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
		Use:   "scrobbler",
		Short: "Audioscrobbler protocol 1.2 submission client",
		Long: `scrobbler queues listens and submits them to a legacy Audioscrobbler
(protocol 1.2) server, handshaking and backing off the way the protocol
requires. Listens enter the queue via the enqueue command or by dropping
YAML files into the spool directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	a.rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c",
		config.DefaultConfigFile, "Config file path")
	a.rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false,
		"Verbose output")

	a.rootCmd.AddCommand(NewRunCmd(a))
	a.rootCmd.AddCommand(NewStatusCmd(a))
	a.rootCmd.AddCommand(NewEnqueueCmd(a))
	a.rootCmd.AddCommand(NewVersionCmd(a))
}

// loadConfig loads the configured config file
func (a *App) loadConfig() (*config.Config, error) {
	return config.LoadConfig(a.configPath)
}
