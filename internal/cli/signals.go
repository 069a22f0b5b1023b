package cli

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalHandler cancels a context and runs shutdown callbacks when the
// process receives SIGINT or SIGTERM.
type SignalHandler struct {
	signals    chan os.Signal
	stopCh     chan struct{}
	done       chan struct{}
	stopOnce   sync.Once
	cancel     context.CancelFunc
	mu         sync.Mutex
	onShutdown []func()
}

// NewSignalHandler creates a signal handler with the given context cancel
func NewSignalHandler(cancel context.CancelFunc) *SignalHandler {
	return &SignalHandler{
		signals: make(chan os.Signal, 1),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
		cancel:  cancel,
	}
}

// Start begins listening for signals
func (h *SignalHandler) Start() {
	signal.Notify(h.signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer close(h.done)
		select {
		case sig := <-h.signals:
			log.Printf("received signal: %v", sig)
			if h.cancel != nil {
				h.cancel()
			}
			h.mu.Lock()
			callbacks := make([]func(), len(h.onShutdown))
			copy(callbacks, h.onShutdown)
			h.mu.Unlock()
			for _, fn := range callbacks {
				fn()
			}
		case <-h.stopCh:
		}
	}()
}

// OnShutdown registers a callback to run when a signal arrives
func (h *SignalHandler) OnShutdown(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onShutdown = append(h.onShutdown, fn)
}

// Stop stops the signal handler
func (h *SignalHandler) Stop() {
	signal.Stop(h.signals)
	h.stopOnce.Do(func() {
		close(h.stopCh)
	})
}
