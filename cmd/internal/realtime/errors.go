package realtime

import "errors"

var (
	// ErrNotOpen is returned by Send when the connection is not Open.
	ErrNotOpen = errors.New("connection not open")

	// ErrStopped is returned when the Manager loop has exited.
	ErrStopped = errors.New("realtime manager stopped")

	// ErrAlreadyRunning is returned by a second concurrent Run.
	ErrAlreadyRunning = errors.New("realtime manager already running")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
