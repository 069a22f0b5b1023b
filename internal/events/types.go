package events

import (
	"fmt"
	"strings"
	"time"
)

// Event represents a single occurrence in the runner or scrobbler lifecycle
type Event struct {
	// Time is when the event occurred (set by bus on emit)
	Time time.Time `json:"time"`

	// Type identifies what happened
	Type EventType `json:"type"`

	// Env is the environment name this event relates to (empty for
	// scrobbler events)
	Env string `json:"env,omitempty"`

	// Command is the command index within the environment (nil if not
	// command-related)
	Command *int `json:"command,omitempty"`

	// Payload contains event-specific data (type varies by event)
	Payload any `json:"payload,omitempty"`

	// Error contains error message if this is a failure event
	Error string `json:"error,omitempty"`
}

// EventType is a string constant identifying the event category
type EventType string

// Run lifecycle events
const (
	RunStarted   EventType = "run.started"
	RunCompleted EventType = "run.completed"
	RunFailed    EventType = "run.failed"
)

// Environment lifecycle events
const (
	EnvStarted   EventType = "env.started"
	EnvCompleted EventType = "env.completed"
	EnvFailed    EventType = "env.failed"
	EnvSkipped   EventType = "env.skipped"
)

// Dependency installation events
const (
	DepsInstalling EventType = "deps.installing"
	DepsInstalled  EventType = "deps.installed"
	DepsFailed     EventType = "deps.failed"
)

// Command execution events
const (
	CommandStarted   EventType = "cmd.started"
	CommandCompleted EventType = "cmd.completed"
	CommandFailed    EventType = "cmd.failed"
)

// Scrobbler client events
const (
	HandshakeAttempt EventType = "handshake.attempt"
	HandshakeOK      EventType = "handshake.ok"
	HandshakeFailed  EventType = "handshake.failed"
	NowPlayingOK     EventType = "nowplaying.ok"
	NowPlayingFailed EventType = "nowplaying.failed"
	ScrobbleOK       EventType = "scrobble.ok"
	ScrobbleFailed   EventType = "scrobble.failed"
	ListenQueued     EventType = "listen.queued"
)

// NewEvent creates an event with the given type and environment name
func NewEvent(eventType EventType, env string) Event {
	return Event{
		Time: time.Now(),
		Type: eventType,
		Env:  env,
	}
}

// WithCommand returns a copy of the event with the command index set
func (e Event) WithCommand(idx int) Event {
	e.Command = &idx
	return e
}

// WithPayload returns a copy of the event with the payload set
func (e Event) WithPayload(payload any) Event {
	e.Payload = payload
	return e
}

// WithError returns a copy of the event with the error message set
func (e Event) WithError(err error) Event {
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// IsFailure returns true if this is a failure event type
func (e Event) IsFailure() bool {
	return strings.HasSuffix(string(e.Type), ".failed")
}

// String returns a human-readable representation of the event
func (e Event) String() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", e.Type))

	if e.Env != "" {
		parts = append(parts, e.Env)
	}

	if e.Command != nil {
		parts = append(parts, fmt.Sprintf("cmd=#%d", *e.Command))
	}

	return strings.Join(parts, " ")
}
