package testutil

import "os"

var scrobblerEnvVars = []string{
	"SCROBBLER_USERNAME",
	"SCROBBLER_PASSWORD_HASH",
	"SCROBBLER_HANDSHAKE_URL",
	"SCROBBLER_STATE_DIR",
	"SCROBBLER_SPOOL_DIR",
	"SCROBBLER_LOG_LEVEL",
}

// UnsetScrobblerEnv clears scrobbler environment overrides that can leak
// into configuration tests from the ambient environment.
func UnsetScrobblerEnv() {
	for _, key := range scrobblerEnvVars {
		_ = os.Unsetenv(key)
	}
}
