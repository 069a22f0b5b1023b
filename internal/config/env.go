package config

import "os"

// envOverrides maps environment variables to config field setters.
var envOverrides = []struct {
	envVar string
	apply  func(*Config, string)
}{
	{
		envVar: "SCROBBLER_USERNAME",
		apply: func(c *Config, v string) {
			c.Network.Username = v
		},
	},
	{
		envVar: "SCROBBLER_PASSWORD_HASH",
		apply: func(c *Config, v string) {
			c.Network.PasswordHash = v
		},
	},
	{
		envVar: "SCROBBLER_HANDSHAKE_URL",
		apply: func(c *Config, v string) {
			c.Network.HandshakeURL = v
		},
	},
	{
		envVar: "SCROBBLER_STATE_DIR",
		apply: func(c *Config, v string) {
			c.StateDir = v
		},
	},
	{
		envVar: "SCROBBLER_SPOOL_DIR",
		apply: func(c *Config, v string) {
			c.SpoolDir = v
		},
	},
	{
		envVar: "SCROBBLER_LOG_LEVEL",
		apply: func(c *Config, v string) {
			c.LogLevel = v
		},
	},
}

// applyEnvOverrides modifies config in place with environment variable values.
func applyEnvOverrides(cfg *Config) {
	for _, override := range envOverrides {
		if val := os.Getenv(override.envVar); val != "" {
			override.apply(cfg, val)
		}
	}
}
