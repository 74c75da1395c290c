package authapi

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the production auth API.
const DefaultBaseURL = "https://sih-backend-eczh.onrender.com/api"

// Config controls the auth client.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:      DefaultBaseURL,
		Timeout:      15 * time.Second,
		MaxBodyBytes: 1 << 20, // 1 MiB
		UserAgent:    "ocean-sentinel-client/1.0",
	}
}

func (c Config) baseURL() (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(c.BaseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: base url: %v", ErrConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: base url scheme %q", ErrConfig, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: base url host is empty", ErrConfig)
	}
	return u, nil
}
