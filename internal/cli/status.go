package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jlieth/legacy-scrobbler-go/internal/store"
)

// NewStatusCmd creates the status command
func NewStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}

			if _, err := os.Stat(cfg.DatabasePath()); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "queue is empty (no database)")
				return nil
			}

			db, err := store.Open(cfg.DatabasePath())
			if err != nil {
				return err
			}
			defer db.Close()

			pending, submitted, err := db.Counts()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "pending:   %d\n", pending)
			fmt.Fprintf(cmd.OutOrStdout(), "submitted: %d\n", submitted)

			if pending > 0 {
				records, err := db.Pending(5)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "\nnext up:")
				for _, rec := range records {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s  %s - %s\n",
						rec.Listen.Date.Format("2006-01-02 15:04"),
						rec.Listen.Artist, rec.Listen.Title)
				}
			}
			return nil
		},
	}
}
