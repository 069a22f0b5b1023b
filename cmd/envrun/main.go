package main

import (
	"fmt"
	"os"

	"github.com/jlieth/legacy-scrobbler-go/internal/envcli"
)

// Build-time variables (set via ldflags)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	app := envcli.New()
	app.SetVersion(version, commit, date)

	if err := app.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(envcli.ExitCode(err))
	}
}
