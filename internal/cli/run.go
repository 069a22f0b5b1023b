package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jlieth/legacy-scrobbler-go/internal/events"
	"github.com/jlieth/legacy-scrobbler-go/internal/listen"
	"github.com/jlieth/legacy-scrobbler-go/internal/network"
	"github.com/jlieth/legacy-scrobbler-go/internal/scrobbler"
	"github.com/jlieth/legacy-scrobbler-go/internal/spool"
	"github.com/jlieth/legacy-scrobbler-go/internal/store"
)

// submittedRetention is how long submitted listens stay in the database
// before the daemon prunes them at startup.
const submittedRetention = 30 * 24 * time.Hour

// NewRunCmd creates the run command
func NewRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scrobbler daemon",
		Long: `Run starts the submission daemon: it watches the spool directory for
incoming listens, keeps the queue in the local database, and ticks the
protocol state machine until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunDaemon(cmd.Context())
		},
	}
}

// RunDaemon runs the daemon loop until the context is cancelled or the
// server rejects the account.
func (a *App) RunDaemon(ctx context.Context) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	interval, err := cfg.TickIntervalDuration()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	handler := NewSignalHandler(cancel)
	handler.OnShutdown(func() {
		fmt.Fprintln(os.Stderr, "\nshutting down")
	})
	handler.Start()
	defer handler.Stop()

	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	db, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return err
	}
	defer db.Close()

	if pruned, err := db.PruneSubmitted(submittedRetention); err != nil {
		log.Printf("prune submitted: %v", err)
	} else if pruned > 0 {
		log.Printf("pruned %d submitted listens", pruned)
	}

	bus := events.NewBus()
	defer bus.Close()
	if a.verbose {
		bus.Subscribe(events.LogHandler(events.LogConfig{IncludePayload: true}))
	}

	net := network.NewClient(cfg.Network.Name, cfg.Network.Username,
		cfg.Network.PasswordHash, cfg.Network.HandshakeURL)

	client := scrobbler.New(net, scrobbler.Options{
		Delay: cfg.DelayOptions(),
		Bus:   bus,
		OnScrobbled: func(count int) {
			if err := db.MarkOldestSubmitted(count); err != nil {
				log.Printf("mark submitted: %v", err)
			}
		},
	})

	// Reload listens that were queued but not submitted before the
	// last shutdown.
	pending, err := db.Pending(0)
	if err != nil {
		return err
	}
	for _, rec := range pending {
		client.Enqueue(rec.Listen)
	}
	if len(pending) > 0 {
		log.Printf("restored %d pending listens", len(pending))
	}

	watcher, err := spool.NewWatcher(cfg.SpoolDir, func(listens []listen.Listen) error {
		for _, l := range listens {
			if _, err := db.Enqueue(l); err != nil {
				return err
			}
		}
		client.Enqueue(listens...)
		client.SetNowPlaying(listens[len(listens)-1])
		return nil
	})
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	log.Printf("scrobbler daemon started (user=%s, tick=%s)", cfg.Network.Username, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("daemon stopped")
			return nil
		case <-ticker.C:
			if err := client.Tick(ctx); err != nil {
				if network.IsFatalHandshake(err) {
					return fmt.Errorf("server rejected account: %w", err)
				}
				if errors.Is(err, context.Canceled) {
					continue
				}
				log.Printf("tick: %v", err)
			}
		}
	}
}
