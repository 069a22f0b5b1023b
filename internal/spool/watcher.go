package spool

import (
	"context"
	"log"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/jlieth/legacy-scrobbler-go/internal/listen"
)

// IngestFunc receives the listens parsed from one spool file.
type IngestFunc func(listens []listen.Listen) error

// Watcher monitors a spool directory and feeds new files to an ingest
// function. Files that parse and ingest cleanly are archived; bad files
// are left in place and logged.
type Watcher struct {
	dir    string
	ingest IngestFunc

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	running bool
	doneCh  chan struct{}
}

// NewWatcher creates a watcher for the given directory. The directory is
// created if it does not exist.
func NewWatcher(dir string, ingest IngestFunc) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		dir:     dir,
		ingest:  ingest,
		watcher: fsw,
		doneCh:  make(chan struct{}),
	}, nil
}

// Start processes files already in the spool, then watches for new ones
// until the context is cancelled. Non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// drain anything that accumulated while the client was down
	files, err := Scan(w.dir)
	if err != nil {
		return err
	}
	for _, path := range files {
		w.process(path)
	}

	go w.run(ctx)
	return nil
}

// Stop shuts the watcher down and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.watcher.Close()
	<-w.doneCh
}

// run is the watcher event loop.
func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// players write then close; Create covers atomic renames
			// into the spool, Write covers direct writes
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !IsSpoolFile(event.Name) {
				continue
			}
			w.process(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("spool: watch error: %v", err)
		}
	}
}

// process parses, ingests and archives a single spool file.
func (w *Watcher) process(path string) {
	if _, err := os.Stat(path); err != nil {
		// already archived by an earlier event for the same file
		return
	}

	listens, err := ParseFile(path)
	if err != nil {
		log.Printf("spool: skipping %s: %v", path, err)
		return
	}
	if len(listens) == 0 {
		log.Printf("spool: %s contains no listens", path)
		return
	}

	if err := w.ingest(listens); err != nil {
		log.Printf("spool: ingest of %s failed: %v", path, err)
		return
	}
	if err := Archive(path); err != nil {
		log.Printf("spool: %v", err)
		return
	}
	log.Printf("spool: ingested %d listens from %s", len(listens), path)
}
