package realtime

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultURL is the production realtime endpoint.
	DefaultURL = "wss://sih-backend-eczh.onrender.com"

	// Max bytes per websocket frame read (hard limit).
	maxFrameBytes = 64 << 10 // 64 KiB

	// Consecutive ping failures that tear the connection down.
	maxPingFailures = 3
)

// Config controls a Manager.
type Config struct {
	URL string

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	// HeartbeatInterval <= 0 disables pings.
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration

	Reconnect                bool
	ReconnectInitialInterval time.Duration
	ReconnectMaxInterval     time.Duration

	InboundQueue int
	EventQueue   int
	ReadLimit    int64
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		URL:                      DefaultURL,
		HandshakeTimeout:         10 * time.Second,
		WriteTimeout:             5 * time.Second,
		HeartbeatInterval:        25 * time.Second,
		HeartbeatTimeout:         5 * time.Second,
		Reconnect:                true,
		ReconnectInitialInterval: 1 * time.Second,
		ReconnectMaxInterval:     1 * time.Minute,
		InboundQueue:             64,
		EventQueue:               64,
		ReadLimit:                maxFrameBytes,
	}
}

// Validate checks cfg for usable values.
func (c Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.URL))
	if err != nil {
		return fmt.Errorf("%w: ws url: %v", ErrConfig, err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("%w: ws url scheme %q", ErrConfig, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: ws url host is empty", ErrConfig)
	}
	if c.HandshakeTimeout <= 0 {
		return fmt.Errorf("%w: handshake timeout must be > 0", ErrConfig)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("%w: write timeout must be > 0", ErrConfig)
	}
	if c.HeartbeatInterval > 0 && c.HeartbeatTimeout <= 0 {
		return fmt.Errorf("%w: heartbeat timeout must be > 0", ErrConfig)
	}
	if c.Reconnect && (c.ReconnectInitialInterval <= 0 || c.ReconnectMaxInterval < c.ReconnectInitialInterval) {
		return fmt.Errorf("%w: reconnect intervals", ErrConfig)
	}
	if c.InboundQueue <= 0 || c.EventQueue <= 0 {
		return fmt.Errorf("%w: queue sizes must be > 0", ErrConfig)
	}
	return nil
}
