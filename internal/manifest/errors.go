package manifest

import "errors"

var (
	// ErrUnknownEnv is returned when a requested environment is not
	// declared in the manifest.
	ErrUnknownEnv = errors.New("unknown environment")

	// ErrManifestNotFound is returned when the manifest file cannot
	// be read.
	ErrManifestNotFound = errors.New("manifest not found")
)
