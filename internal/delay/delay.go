// Package delay implements the handshake backoff required by the
// Audioscrobbler 1.2 protocol: the first failure delays one minute, every
// further failure doubles the delay, capped at 120 minutes.
package delay

import "time"

// Options controls backoff behavior.
type Options struct {
	// Base is the delay after the first failure.
	Base time.Duration

	// Max caps the delay.
	Max time.Duration

	// Multiplier is applied on every consecutive failure.
	Multiplier int
}

// DefaultOptions are the protocol values.
var DefaultOptions = Options{
	Base:       60 * time.Second,
	Max:        120 * time.Minute,
	Multiplier: 2,
}

// Delay tracks an exponential backoff window.
type Delay struct {
	opts    Options
	current time.Duration
	started time.Time

	// now is replaceable in tests
	now func() time.Time
}

// New creates a Delay. Zero-value option fields fall back to the defaults.
func New(opts Options) *Delay {
	if opts.Base <= 0 {
		opts.Base = DefaultOptions.Base
	}
	if opts.Max <= 0 {
		opts.Max = DefaultOptions.Max
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = DefaultOptions.Multiplier
	}
	return &Delay{opts: opts, now: time.Now}
}

// SetClock replaces the time source. Intended for tests.
func (d *Delay) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	d.now = now
}

// Start resets the delay, marks the start time and applies the first
// increase in one step.
func (d *Delay) Start() {
	d.Reset()
	d.Update()
	d.Increase()
}

// Update marks the start of the current delay window as now.
func (d *Delay) Update() {
	d.started = d.now()
}

// Reset clears both the delay length and the start time.
func (d *Delay) Reset() {
	d.current = 0
	d.started = time.Time{}
}

// Increase grows the delay: base on the first failure, multiplied on every
// consecutive one, capped at the maximum.
func (d *Delay) Increase() {
	if d.current == 0 {
		d.current = d.opts.Base
	} else {
		d.current *= time.Duration(d.opts.Multiplier)
	}
	if d.current > d.opts.Max {
		d.current = d.opts.Max
	}
}

// Current returns the configured delay length.
func (d *Delay) Current() time.Duration {
	return d.current
}

// Remaining returns how long until the delay window is over. It is zero
// when no delay is set, when no window has been started, or when the
// window has already passed.
func (d *Delay) Remaining() time.Duration {
	if d.current == 0 || d.started.IsZero() {
		return 0
	}
	end := d.started.Add(d.current)
	now := d.now()
	if !end.After(now) {
		return 0
	}
	return end.Sub(now)
}

// IsActive reports whether a delay is currently in effect.
func (d *Delay) IsActive() bool {
	return d.Remaining() > 0
}
