package credential

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Load when no record is stored.
	ErrNotFound = errors.New("credential not found")

	// ErrCorrupt is returned by Load when stored data is unreadable or partial.
	ErrCorrupt = errors.New("credential corrupt")

	// ErrIncomplete is returned by Save for a record with missing fields.
	ErrIncomplete = errors.New("credential record incomplete")

	// ErrConfig is returned for invalid store configuration.
	ErrConfig = errors.New("invalid config")
)

// CorruptError describes why a stored record could not be loaded.
type CorruptError struct {
	Backend string
	Reason  string
	Err     error
}

func (e *CorruptError) Error() string {
	msg := fmt.Sprintf("%s: %s store: %s", ErrCorrupt.Error(), e.Backend, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CorruptError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCorrupt}
	}
	return []error{ErrCorrupt, e.Err}
}

func corrupt(backend, reason string, err error) error {
	return &CorruptError{Backend: backend, Reason: reason, Err: err}
}
