package authapi

import (
	"errors"
	"fmt"
)

var (
	// ErrRejected is returned when the server declares the request failed.
	ErrRejected = errors.New("rejected by auth server")

	// ErrTransport is returned when the server could not be reached or its
	// response could not be understood.
	ErrTransport = errors.New("auth server unreachable")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// RejectedError carries the server's stated reason.
type RejectedError struct {
	Op      string
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s (status %d)", e.Op, ErrRejected.Error(), e.Status)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, ErrRejected.Error(), e.Message)
}

func (e *RejectedError) Unwrap() error { return ErrRejected }

// TransportError wraps the underlying network or decode failure.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Op, ErrTransport.Error(), e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrTransport.Error(), e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }
