// Package events distributes lifecycle events between the execution core
// and its consumers (log output, TUI, JSON emitters).
package events

import "sync"

// Handler receives events emitted on a bus
type Handler func(Event)

// Bus fan-outs events to subscribed handlers. Emit is synchronous:
// handlers run on the emitting goroutine, in subscription order.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	closed   bool
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for all future events
func (b *Bus) Subscribe(h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Emit delivers the event to all subscribed handlers
func (b *Bus) Emit(e Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// Close shuts down the event bus; further emits are dropped
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = nil
	return nil
}
