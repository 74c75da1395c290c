package session

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthFailed is returned when the server rejects the credentials.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrNetwork is returned when the auth server is unreachable or its
	// response is unusable.
	ErrNetwork = errors.New("network error")

	// ErrSessionExpired marks a restored session older than the expiry policy.
	// It is logged, never returned to callers.
	ErrSessionExpired = errors.New("session expired")

	// ErrRecoveryUnavailable is returned by the password-recovery operations.
	ErrRecoveryUnavailable = errors.New("password recovery unavailable")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// AuthError is a user-facing login or registration failure.
// Kind is ErrAuthFailed or ErrNetwork.
type AuthError struct {
	Op     string
	Kind   error
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind.Error())
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *AuthError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
