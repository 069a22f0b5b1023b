package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ValidationError contains details about what failed validation.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config.%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// md5HexLen is the length of a hex-encoded md5 digest.
const md5HexLen = 32

// validateConfig checks all config values for validity.
// Returns nil if valid, or joined errors for all validation failures.
func validateConfig(cfg *Config) error {
	var errs []error

	if cfg.Network.Username == "" {
		errs = append(errs, &ValidationError{
			Field:   "network.username",
			Value:   cfg.Network.Username,
			Message: "must be set",
		})
	}

	if len(cfg.Network.PasswordHash) != md5HexLen {
		errs = append(errs, &ValidationError{
			Field:   "network.password_hash",
			Value:   len(cfg.Network.PasswordHash),
			Message: "must be a 32 character hex md5 digest",
		})
	}

	if cfg.Network.HandshakeURL == "" {
		errs = append(errs, &ValidationError{
			Field:   "network.handshake_url",
			Value:   cfg.Network.HandshakeURL,
			Message: "must be set",
		})
	} else if u, err := url.Parse(cfg.Network.HandshakeURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, &ValidationError{
			Field:   "network.handshake_url",
			Value:   cfg.Network.HandshakeURL,
			Message: "must be an absolute URL",
		})
	}

	if d, err := time.ParseDuration(cfg.TickInterval); err != nil {
		errs = append(errs, &ValidationError{
			Field:   "tick_interval",
			Value:   cfg.TickInterval,
			Message: fmt.Sprintf("invalid duration: %v", err),
		})
	} else if d <= 0 {
		errs = append(errs, &ValidationError{
			Field:   "tick_interval",
			Value:   cfg.TickInterval,
			Message: "must be positive",
		})
	}

	if cfg.Delay.BaseSeconds < 0 {
		errs = append(errs, &ValidationError{
			Field:   "delay.base_seconds",
			Value:   cfg.Delay.BaseSeconds,
			Message: "must be non-negative",
		})
	}
	if cfg.Delay.MaxSeconds < 0 {
		errs = append(errs, &ValidationError{
			Field:   "delay.max_seconds",
			Value:   cfg.Delay.MaxSeconds,
			Message: "must be non-negative",
		})
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, &ValidationError{
			Field:   "log_level",
			Value:   cfg.LogLevel,
			Message: "must be one of: debug, info, warn, error",
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
