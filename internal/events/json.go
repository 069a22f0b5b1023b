package events

import (
	"encoding/json"
	"io"
	"sync"
)

// JSONEmitter writes events as JSON lines to a writer.
// Thread-safe for concurrent Emit calls.
type JSONEmitter struct {
	w   io.Writer
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONEmitter creates a new JSON emitter that writes to w.
func NewJSONEmitter(w io.Writer) *JSONEmitter {
	return &JSONEmitter{
		w:   w,
		enc: json.NewEncoder(w),
	}
}

// Emit writes the event as a single JSON line.
func (e *JSONEmitter) Emit(event Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enc.Encode(event)
}

// JSONEmitterHandler returns a Handler that emits events as JSON lines.
// Encoding errors are dropped; event output must never abort a run.
func JSONEmitterHandler(emitter *JSONEmitter) Handler {
	return func(e Event) {
		_ = emitter.Emit(e)
	}
}
