package scrobbler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jlieth/legacy-scrobbler-go/internal/listen"
	"github.com/jlieth/legacy-scrobbler-go/internal/network"
)

// stubNetwork records calls and returns queued errors per method.
type stubNetwork struct {
	handshakeErr  []error
	nowPlayingErr []error
	submitErr     []error

	handshakes  int
	nowPlayings []listen.Listen
	submissions [][]listen.Listen
	resets      int
}

func pop(queue *[]error) error {
	if len(*queue) == 0 {
		return nil
	}
	err := (*queue)[0]
	*queue = (*queue)[1:]
	return err
}

func (s *stubNetwork) Handshake(ctx context.Context) error {
	s.handshakes++
	return pop(&s.handshakeErr)
}

func (s *stubNetwork) NowPlaying(ctx context.Context, l listen.Listen) error {
	s.nowPlayings = append(s.nowPlayings, l)
	return pop(&s.nowPlayingErr)
}

func (s *stubNetwork) Submit(ctx context.Context, listens ...listen.Listen) error {
	batch := append([]listen.Listen(nil), listens...)
	s.submissions = append(s.submissions, batch)
	return pop(&s.submitErr)
}

func (s *stubNetwork) ResetSession() {
	s.resets++
}

// newIdleClient returns a client that has completed a handshake.
func newIdleClient(t *testing.T, stub *stubNetwork, opts Options) *Client {
	t.Helper()
	c := New(stub, opts)
	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("handshake tick failed: %v", err)
	}
	if c.State() != StateIdle {
		t.Fatalf("expected idle state after handshake, got %s", c.State())
	}
	return c
}

func makeListens(n int) []listen.Listen {
	base := time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC)
	listens := make([]listen.Listen, n)
	for i := range listens {
		listens[i] = listen.New(base.Add(time.Duration(i)*time.Minute),
			fmt.Sprintf("artist-%d", i), fmt.Sprintf("title-%d", i))
	}
	return listens
}

func TestTick_HandshakeOnFirstTick(t *testing.T) {
	stub := &stubNetwork{}
	c := New(stub, Options{})

	if c.State() != StateNoSession {
		t.Fatalf("expected no_session initially, got %s", c.State())
	}
	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stub.handshakes != 1 {
		t.Errorf("expected 1 handshake, got %d", stub.handshakes)
	}
	if c.State() != StateIdle {
		t.Errorf("expected idle state, got %s", c.State())
	}
}

func TestTick_HandshakeFailureBacksOff(t *testing.T) {
	stub := &stubNetwork{handshakeErr: []error{network.ErrHardFailure}}
	c := New(stub, Options{})

	now := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	c.Delay().SetClock(func() time.Time { return now })

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.State() != StateNoSession {
		t.Errorf("expected no_session after failed handshake, got %s", c.State())
	}
	if c.HardFailures() != 1 {
		t.Errorf("expected 1 hard failure, got %d", c.HardFailures())
	}
	if got := c.Delay().Current(); got != 60*time.Second {
		t.Errorf("expected 60s delay, got %v", got)
	}

	// next tick is inside the backoff window, no new attempt
	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.handshakes != 1 {
		t.Errorf("expected handshake to be delayed, got %d attempts", stub.handshakes)
	}

	// after the window passes, the handshake is retried
	now = now.Add(61 * time.Second)
	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.handshakes != 2 {
		t.Errorf("expected handshake retry, got %d attempts", stub.handshakes)
	}
}

func TestTick_FatalHandshakeSurfaces(t *testing.T) {
	for _, fatal := range []error{network.ErrBanned, network.ErrBadAuth, network.ErrBadTime} {
		stub := &stubNetwork{handshakeErr: []error{fatal}}
		c := New(stub, Options{})

		err := c.Tick(context.Background())
		if !errors.Is(err, fatal) {
			t.Errorf("expected %v to surface, got %v", fatal, err)
		}
	}
}

func TestTick_NowPlayingBeforeScrobble(t *testing.T) {
	stub := &stubNetwork{}
	c := newIdleClient(t, stub, Options{})

	np := listen.New(time.Now(), "NP Artist", "NP Title")
	c.SetNowPlaying(np)
	c.Enqueue(makeListens(3)...)

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(stub.nowPlayings) != 1 {
		t.Fatalf("expected nowplaying request first, got %d", len(stub.nowPlayings))
	}
	if len(stub.submissions) != 0 {
		t.Error("expected no submission while nowplaying is pending")
	}
	if stub.nowPlayings[0].Artist != "NP Artist" {
		t.Errorf("unexpected nowplaying listen: %+v", stub.nowPlayings[0])
	}

	// nowplaying slot is cleared, next tick scrobbles
	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stub.submissions) != 1 {
		t.Fatalf("expected submission on next tick, got %d", len(stub.submissions))
	}
}

func TestSetNowPlaying_LatestWins(t *testing.T) {
	stub := &stubNetwork{}
	c := newIdleClient(t, stub, Options{})

	c.SetNowPlaying(listen.New(time.Now(), "First", "Title"))
	c.SetNowPlaying(listen.New(time.Now(), "Second", "Title"))

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stub.nowPlayings) != 1 || stub.nowPlayings[0].Artist != "Second" {
		t.Errorf("expected only the latest nowplaying, got %+v", stub.nowPlayings)
	}
}

func TestTick_ScrobbleBatchesOf50(t *testing.T) {
	stub := &stubNetwork{}
	c := newIdleClient(t, stub, Options{})

	c.Enqueue(makeListens(75)...)

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stub.submissions) != 1 || len(stub.submissions[0]) != 50 {
		t.Fatalf("expected one batch of 50, got %v", len(stub.submissions))
	}
	if c.QueueLen() != 25 {
		t.Errorf("expected 25 listens remaining, got %d", c.QueueLen())
	}

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stub.submissions) != 2 || len(stub.submissions[1]) != 25 {
		t.Fatalf("expected second batch of 25, got %d batches", len(stub.submissions))
	}
	if c.QueueLen() != 0 {
		t.Errorf("expected empty queue, got %d", c.QueueLen())
	}
}

func TestTick_FailedScrobbleKeepsQueue(t *testing.T) {
	stub := &stubNetwork{submitErr: []error{network.ErrHardFailure}}
	c := newIdleClient(t, stub, Options{})

	c.Enqueue(makeListens(10)...)

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.QueueLen() != 10 {
		t.Errorf("expected queue to be kept on failure, got %d", c.QueueLen())
	}
	if c.HardFailures() != 1 {
		t.Errorf("expected 1 hard failure, got %d", c.HardFailures())
	}
}

func TestEnqueue_SortsByDate(t *testing.T) {
	stub := &stubNetwork{}
	c := newIdleClient(t, stub, Options{})

	base := time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC)
	c.Enqueue(listen.New(base.Add(time.Hour), "late", "t"))
	c.Enqueue(listen.New(base, "early", "t"))

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	batch := stub.submissions[0]
	if batch[0].Artist != "early" || batch[1].Artist != "late" {
		t.Errorf("expected chronological batch, got %s, %s", batch[0].Artist, batch[1].Artist)
	}
}

func TestTick_BadSessionFallsBackToHandshake(t *testing.T) {
	stub := &stubNetwork{submitErr: []error{network.ErrBadSession}}
	c := newIdleClient(t, stub, Options{})

	c.Enqueue(makeListens(1)...)

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.State() != StateNoSession {
		t.Errorf("expected fallback to no_session, got %s", c.State())
	}
	if stub.resets != 1 {
		t.Errorf("expected session reset, got %d", stub.resets)
	}

	// the listen stays queued and is submitted after re-handshake
	if c.QueueLen() != 1 {
		t.Errorf("expected listen to stay queued, got %d", c.QueueLen())
	}
}

func TestTick_ThreeHardFailuresForceRehandshake(t *testing.T) {
	stub := &stubNetwork{
		submitErr: []error{network.ErrHardFailure, network.ErrHardFailure, network.ErrHardFailure},
	}
	c := newIdleClient(t, stub, Options{})
	c.Enqueue(makeListens(1)...)

	for i := 0; i < 2; i++ {
		if err := c.Tick(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.State() != StateIdle {
			t.Fatalf("expected idle after %d failures, got %s", i+1, c.State())
		}
	}

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.State() != StateNoSession {
		t.Errorf("expected no_session after 3 hard failures, got %s", c.State())
	}
	if c.HardFailures() != 3 {
		t.Errorf("expected 3 hard failures, got %d", c.HardFailures())
	}
}

func TestTick_SuccessfulHandshakeResetsFailures(t *testing.T) {
	stub := &stubNetwork{handshakeErr: []error{network.ErrHardFailure}}
	c := New(stub, Options{})

	now := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	c.Delay().SetClock(func() time.Time { return now })

	// failed handshake, then a successful retry
	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.State() != StateIdle {
		t.Errorf("expected idle state, got %s", c.State())
	}
	if c.HardFailures() != 0 {
		t.Errorf("expected reset failure count, got %d", c.HardFailures())
	}
	if c.Delay().IsActive() {
		t.Error("expected inactive delay after successful handshake")
	}
}

func TestOnScrobbled_Callback(t *testing.T) {
	stub := &stubNetwork{}
	var counts []int
	c := newIdleClient(t, stub, Options{
		OnScrobbled: func(count int) { counts = append(counts, count) },
	})

	c.Enqueue(makeListens(7)...)
	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(counts) != 1 || counts[0] != 7 {
		t.Errorf("expected callback with count 7, got %v", counts)
	}
}
