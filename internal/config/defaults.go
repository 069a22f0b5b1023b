package config

import (
	"time"

	"github.com/jlieth/legacy-scrobbler-go/internal/delay"
)

const (
	DefaultConfigFile   = "scrobbler.yaml"
	DefaultTickInterval = "1s"
	DefaultStateDir     = ".scrobbler"
	DefaultSpoolDir     = ".scrobbler/spool"
	DefaultLogLevel     = "info"
)

// DefaultConfig returns a Config with all default values applied.
// Credentials have no defaults and must come from the file or the
// environment.
func DefaultConfig() *Config {
	return &Config{
		TickInterval: DefaultTickInterval,
		StateDir:     DefaultStateDir,
		SpoolDir:     DefaultSpoolDir,
		LogLevel:     DefaultLogLevel,
	}
}

// TickIntervalDuration parses the tick interval as a Duration.
func (c *Config) TickIntervalDuration() (time.Duration, error) {
	return time.ParseDuration(c.TickInterval)
}

// DelayOptions converts the delay settings into backoff options.
// Zero fields keep the protocol defaults.
func (c *Config) DelayOptions() delay.Options {
	return delay.Options{
		Base:       time.Duration(c.Delay.BaseSeconds) * time.Second,
		Max:        time.Duration(c.Delay.MaxSeconds) * time.Second,
		Multiplier: c.Delay.Multiplier,
	}
}
