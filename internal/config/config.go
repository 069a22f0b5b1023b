// Package config loads the scrobbler daemon configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the scrobbler daemon.
// It is immutable after creation via LoadConfig().
type Config struct {
	// Network identifies the scrobble network (used in logs only)
	Network NetworkConfig `yaml:"network"`

	// TickInterval is how often the client loop ticks (Go duration string)
	TickInterval string `yaml:"tick_interval"`

	// StateDir is where the queue database lives.
	// Relative paths are resolved from the config directory.
	StateDir string `yaml:"state_dir"`

	// SpoolDir is the drop directory watched for listen files.
	// Relative paths are resolved from the config directory.
	SpoolDir string `yaml:"spool_dir"`

	// Delay contains handshake backoff settings
	Delay DelayConfig `yaml:"delay"`

	// LogLevel controls log verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`
}

// NetworkConfig holds the credentials for one scrobble network.
type NetworkConfig struct {
	// Name labels the network in logs (e.g. "last.fm")
	Name string `yaml:"name"`

	// Username is the account name on the network
	Username string `yaml:"username"`

	// PasswordHash is the lowercase hex md5 of the account password.
	// The plaintext password is never stored.
	PasswordHash string `yaml:"password_hash"`

	// HandshakeURL is the protocol 1.2 handshake endpoint
	HandshakeURL string `yaml:"handshake_url"`
}

// DelayConfig controls the handshake backoff. Zero values fall back to
// the protocol defaults (60s base, 120m max, doubling).
type DelayConfig struct {
	// BaseSeconds is the delay after the first failed request
	BaseSeconds int `yaml:"base_seconds"`

	// MaxSeconds caps the delay
	MaxSeconds int `yaml:"max_seconds"`

	// Multiplier is applied on every consecutive failure
	Multiplier int `yaml:"multiplier"`
}

// LoadConfig loads configuration from the given file path.
// It applies defaults, then file values, then environment overrides,
// then validates the result. A missing file is not an error; defaults
// and environment variables alone can form a valid config.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	baseDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		if abs, err := filepath.Abs(filepath.Dir(path)); err == nil {
			baseDir = abs
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnvOverrides(cfg)

	// Resolve relative paths against the config location
	if !filepath.IsAbs(cfg.StateDir) {
		cfg.StateDir = filepath.Join(baseDir, cfg.StateDir)
	}
	if !filepath.IsAbs(cfg.SpoolDir) {
		cfg.SpoolDir = filepath.Join(baseDir, cfg.SpoolDir)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DatabasePath returns the location of the queue database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.StateDir, "queue.db")
}
