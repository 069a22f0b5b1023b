package envcli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jlieth/legacy-scrobbler-go/internal/manifest"
)

// NewListCmd creates the list command
func NewListCmd(app *App) *cobra.Command {
	manifestPath := manifest.DefaultFile

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List environments declared in the manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.Load(manifestPath)
			if err != nil {
				return err
			}

			defaults := map[string]bool{}
			for _, name := range m.Default {
				defaults[name] = true
			}

			names := m.Names()
			sort.Strings(names)

			for _, name := range names {
				resolved, err := m.Resolve(name)
				if err != nil {
					return err
				}
				marker := " "
				if defaults[name] {
					marker = "*"
				}
				line := fmt.Sprintf("%s %-12s %d commands", marker, name, len(resolved.Commands))
				if len(resolved.Deps) > 0 {
					line += fmt.Sprintf(", %d deps", len(resolved.Deps))
				}
				if env := m.Environments[name]; len(env.Include) > 0 {
					line += fmt.Sprintf(" (includes %s)", strings.Join(env.Include, ", "))
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", manifest.DefaultFile, "Manifest file path")
	return cmd
}
