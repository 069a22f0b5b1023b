package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jlieth/legacy-scrobbler-go/internal/listen"
	"github.com/jlieth/legacy-scrobbler-go/internal/store"
)

// EnqueueOptions holds flags for the enqueue command
type EnqueueOptions struct {
	Artist        string
	Title         string
	Album         string
	Length        int
	TrackNumber   int
	MusicBrainzID string
	PlayedAt      string // RFC 3339; empty means now
}

// NewEnqueueCmd creates the enqueue command
func NewEnqueueCmd(app *App) *cobra.Command {
	var opts EnqueueOptions

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Add a listen to the submission queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			playedAt := time.Now()
			if opts.PlayedAt != "" {
				var err error
				playedAt, err = time.Parse(time.RFC3339, opts.PlayedAt)
				if err != nil {
					return fmt.Errorf("invalid --time: %w", err)
				}
			}

			l := listen.New(playedAt, opts.Artist, opts.Title)
			l.Album = opts.Album
			l.Length = opts.Length
			l.TrackNumber = opts.TrackNumber
			l.MusicBrainzID = opts.MusicBrainzID

			if err := l.Validate(); err != nil {
				return err
			}

			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			db, err := store.Open(cfg.DatabasePath())
			if err != nil {
				return err
			}
			defer db.Close()

			id, err := db.Enqueue(l)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %s (%s - %s)\n", id, l.Artist, l.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Artist, "artist", "", "Artist name (required)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "Track title (required)")
	cmd.Flags().StringVar(&opts.Album, "album", "", "Album name")
	cmd.Flags().IntVar(&opts.Length, "length", 0, "Track length in seconds")
	cmd.Flags().IntVar(&opts.TrackNumber, "track", 0, "Track number")
	cmd.Flags().StringVar(&opts.MusicBrainzID, "mbid", "", "MusicBrainz track ID")
	cmd.Flags().StringVar(&opts.PlayedAt, "time", "", "Play time (RFC 3339, default now)")
	_ = cmd.MarkFlagRequired("artist")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}
