package network

import (
	"errors"
	"fmt"
)

// Sentinel errors for the protocol failure modes.
var (
	// ErrBanned means the server rejected this client version outright.
	// Fatal: retrying will not help.
	ErrBanned = errors.New("client is banned from this network")

	// ErrBadAuth means the submitted credentials were rejected. Fatal.
	ErrBadAuth = errors.New("authentication failed, check credentials")

	// ErrBadTime means the reported timestamp is too far off. Fatal until
	// the system clock is fixed.
	ErrBadTime = errors.New("reported timestamp is off, check system clock")

	// ErrBadSession means the server no longer accepts the session id.
	// The client should fall back to the handshake phase.
	ErrBadSession = errors.New("session is invalid")

	// ErrNoSession means a request that requires a session was attempted
	// before a successful handshake.
	ErrNoSession = errors.New("no session exists")

	// ErrNoListens means a submission was attempted with an empty batch.
	ErrNoListens = errors.New("submission without listens")

	// ErrHardFailure covers non-200 responses and response bodies outside
	// the protocol. Transient: the client backs off and retries.
	ErrHardFailure = errors.New("hard failure")

	// ErrRequestFailed wraps transport-level errors from the HTTP client.
	ErrRequestFailed = errors.New("request failed")
)

// IsFatalHandshake reports whether err is a handshake response that must
// not be retried (BANNED, BADAUTH, BADTIME).
func IsFatalHandshake(err error) bool {
	return errors.Is(err, ErrBanned) || errors.Is(err, ErrBadAuth) || errors.Is(err, ErrBadTime)
}

// IsTransient reports whether err should be handled with backoff and
// retried on a later tick.
func IsTransient(err error) bool {
	return errors.Is(err, ErrHardFailure) || errors.Is(err, ErrRequestFailed)
}

func hardFailure(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrHardFailure, fmt.Sprintf(format, args...))
}
