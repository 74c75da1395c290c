package session

import (
	"fmt"
	"time"
)

// Config controls session policy.
type Config struct {
	// TTL is the expiry policy measured from the session's issue time.
	TTL time.Duration

	// LogoutTimeout bounds the best-effort remote logout call.
	LogoutTimeout time.Duration

	// CleanupTimeout bounds local cleanup (realtime disconnect, store clear).
	CleanupTimeout time.Duration
}

// DefaultConfig returns the 7-day policy.
func DefaultConfig() Config {
	return Config{
		TTL:            7 * 24 * time.Hour,
		LogoutTimeout:  5 * time.Second,
		CleanupTimeout: 5 * time.Second,
	}
}

// Validate checks cfg for usable values.
func (c Config) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("%w: session ttl must be > 0", ErrConfig)
	}
	if c.LogoutTimeout <= 0 || c.CleanupTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be > 0", ErrConfig)
	}
	return nil
}
