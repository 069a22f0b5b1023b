// Package scrobbler implements the client-side state machine of the
// Audioscrobbler 1.2 protocol: a listen queue, a now-playing slot and a
// Tick function meant to be called from a main loop. Tick decides on each
// call whether to handshake, announce the playing track or submit a batch,
// based on the current state and the handshake backoff.
package scrobbler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/jlieth/legacy-scrobbler-go/internal/delay"
	"github.com/jlieth/legacy-scrobbler-go/internal/events"
	"github.com/jlieth/legacy-scrobbler-go/internal/listen"
	"github.com/jlieth/legacy-scrobbler-go/internal/network"
)

// State is the client connection state.
type State string

const (
	// StateNoSession means no valid session exists; the next tick will
	// attempt a handshake once the backoff allows it.
	StateNoSession State = "no_session"

	// StateIdle means a session exists and requests may be sent.
	StateIdle State = "idle"
)

// BatchSize is the maximum number of listens per submission request.
const BatchSize = 50

// maxHardFailures is how many consecutive hard failures are tolerated
// before the client falls back to the handshake phase.
const maxHardFailures = 3

// Network is the protocol surface the client drives. *network.Client
// satisfies it; tests use stubs.
type Network interface {
	Handshake(ctx context.Context) error
	NowPlaying(ctx context.Context, l listen.Listen) error
	Submit(ctx context.Context, listens ...listen.Listen) error
	ResetSession()
}

// Options configures a Client.
type Options struct {
	// Delay overrides the handshake backoff options.
	Delay delay.Options

	// Bus receives lifecycle events. Optional.
	Bus *events.Bus

	// OnScrobbled is called after a successful submission with the
	// number of listens the server accepted. Optional; used by the
	// daemon to mark persisted listens as submitted.
	OnScrobbled func(count int)
}

// Client drives a Network from a main loop.
type Client struct {
	network Network
	bus     *events.Bus

	mu          sync.Mutex
	state       State
	queue       []listen.Listen
	nowPlaying  *listen.Listen
	hardFails   int
	delay       *delay.Delay
	onScrobbled func(count int)
}

// New creates a Client in the no-session state.
func New(n Network, opts Options) *Client {
	return &Client{
		network:     n,
		bus:         opts.Bus,
		state:       StateNoSession,
		delay:       delay.New(opts.Delay),
		onScrobbled: opts.OnScrobbled,
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// QueueLen returns the number of listens waiting for submission.
func (c *Client) QueueLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// HardFailures returns the consecutive hard failure count.
func (c *Client) HardFailures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hardFails
}

// Delay exposes the handshake backoff, mainly so tests can pin its clock.
func (c *Client) Delay() *delay.Delay {
	return c.delay
}

// SetNowPlaying sets the given listen as the now-playing track. The
// notification is sent on the next idle tick; a newer call replaces an
// unsent one.
func (c *Client) SetNowPlaying(l listen.Listen) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nowPlaying = &l
}

// Enqueue adds listens to the submission queue, keeping it in
// chronological order.
func (c *Client) Enqueue(listens ...listen.Listen) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, listens...)
	listen.SortByDate(c.queue)
}

// Tick checks the internal state and performs at most one request:
//
//   - no session and backoff expired: handshake attempt
//   - idle with a pending now-playing: now-playing notification
//   - idle with queued listens: submission of up to BatchSize listens
//
// Transient failures (hard failures, transport errors) are handled
// internally by increasing the backoff; after three consecutive failures
// the client falls back to the handshake phase. A BADSESSION answer drops
// the session. Fatal handshake answers (BANNED, BADAUTH, BADTIME) are
// returned to the caller and terminate the loop.
func (c *Client) Tick(ctx context.Context) error {
	c.mu.Lock()
	state := c.state
	np := c.nowPlaying
	queued := len(c.queue)
	c.mu.Unlock()

	switch {
	case state == StateNoSession && !c.delay.IsActive():
		return c.attemptHandshake(ctx)
	case state == StateIdle && np != nil:
		return c.attemptNowPlaying(ctx, *np)
	case state == StateIdle && queued > 0:
		return c.attemptScrobble(ctx)
	}
	return nil
}

func (c *Client) attemptHandshake(ctx context.Context) error {
	log.Printf("scrobbler: executing handshake attempt")
	c.emit(events.NewEvent(events.HandshakeAttempt, ""))

	err := c.network.Handshake(ctx)

	// the backoff window starts at the attempt, success or not
	c.delay.Update()

	if err == nil {
		c.mu.Lock()
		c.hardFails = 0
		c.state = StateIdle
		c.mu.Unlock()
		c.delay.Reset()
		log.Printf("scrobbler: handshake successful")
		c.emit(events.NewEvent(events.HandshakeOK, ""))
		return nil
	}

	c.emit(events.NewEvent(events.HandshakeFailed, "").WithError(err))

	if network.IsFatalHandshake(err) {
		log.Printf("scrobbler: fatal error during handshake attempt: %v", err)
		return fmt.Errorf("handshake: %w", err)
	}

	log.Printf("scrobbler: hard failure during handshake attempt: %v", err)
	c.inCaseOfFailure()
	return nil
}

func (c *Client) attemptNowPlaying(ctx context.Context, l listen.Listen) error {
	log.Printf("scrobbler: executing nowplaying attempt")

	err := c.network.NowPlaying(ctx, l)
	if err == nil {
		c.mu.Lock()
		c.nowPlaying = nil
		c.mu.Unlock()
		log.Printf("scrobbler: nowplaying successful")
		c.emit(events.NewEvent(events.NowPlayingOK, ""))
		return nil
	}

	c.emit(events.NewEvent(events.NowPlayingFailed, "").WithError(err))
	return c.handleRequestFailure("nowplaying", err)
}

func (c *Client) attemptScrobble(ctx context.Context) error {
	c.mu.Lock()
	batch := c.queue
	if len(batch) > BatchSize {
		batch = batch[:BatchSize]
	}
	batch = append([]listen.Listen(nil), batch...)
	c.mu.Unlock()

	log.Printf("scrobbler: executing scrobbling attempt with %d listens", len(batch))

	err := c.network.Submit(ctx, batch...)
	if err == nil {
		c.mu.Lock()
		c.queue = c.queue[len(batch):]
		remaining := len(c.queue)
		c.mu.Unlock()
		log.Printf("scrobbler: scrobbling successful, %d listens remain queued", remaining)
		c.emit(events.NewEvent(events.ScrobbleOK, "").WithPayload(map[string]any{
			"count": len(batch),
		}))
		if c.onScrobbled != nil {
			c.onScrobbled(len(batch))
		}
		return nil
	}

	c.emit(events.NewEvent(events.ScrobbleFailed, "").WithError(err))

	if errors.Is(err, network.ErrNoListens) {
		// programming error in the calling code, surface it
		return fmt.Errorf("scrobble: %w", err)
	}
	return c.handleRequestFailure("scrobble", err)
}

// handleRequestFailure applies the failure policy for nowplaying and
// scrobble requests.
func (c *Client) handleRequestFailure(reqType string, err error) error {
	switch {
	case errors.Is(err, network.ErrBadSession), errors.Is(err, network.ErrNoSession):
		log.Printf("scrobbler: %v, falling back to handshake phase", err)
		c.mu.Lock()
		c.state = StateNoSession
		c.mu.Unlock()
		c.network.ResetSession()
		return nil
	case network.IsTransient(err):
		log.Printf("scrobbler: hard failure during %s attempt: %v", reqType, err)
		c.inCaseOfFailure()
		return nil
	default:
		return fmt.Errorf("%s: %w", reqType, err)
	}
}

// inCaseOfFailure increments the hard failure counter and grows the
// backoff. At three consecutive failures the client falls back to the
// handshake phase.
func (c *Client) inCaseOfFailure() {
	c.delay.Increase()

	c.mu.Lock()
	c.hardFails++
	fails := c.hardFails
	fellBack := false
	if c.state != StateNoSession && fails >= maxHardFailures {
		c.state = StateNoSession
		fellBack = true
	}
	c.mu.Unlock()

	log.Printf("scrobbler: hard failure count is now %d, delay is %v", fails, c.delay.Current())
	if fellBack {
		log.Printf("scrobbler: falling back to handshake phase")
	}
}

func (c *Client) emit(e events.Event) {
	if c.bus != nil {
		c.bus.Emit(e)
	}
}
