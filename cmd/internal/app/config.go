package app

import (
	"fmt"
	"os"
	"time"

	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/auth/api"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/auth/session"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/credential"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/realtime"
	"github.com/prakhar362/Ocean-Sentinal/cmd/security/seal"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	LogLevel  string
	LogFormat string

	// ControlAddr is the listen address of the control API (serve only).
	ControlAddr       string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration

	// AuthAttemptLimit caps login and register calls per AuthAttemptWindow
	// on the control API. Zero disables the cap.
	AuthAttemptLimit  int
	AuthAttemptWindow time.Duration

	// Location is "lat,lon" for a fixed position; empty means no source.
	Location string

	API        authapi.Config
	Session    session.Config
	Realtime   realtime.Config
	Credential credential.Config
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel:          "info",
		LogFormat:         "json",
		ControlAddr:       "127.0.0.1:8787",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		AuthAttemptLimit:  10,
		AuthAttemptWindow: time.Minute,
		API:               authapi.DefaultConfig(),
		Session:           session.DefaultConfig(),
		Realtime:          realtime.DefaultConfig(),
		Credential: credential.Config{
			Backend:     credential.BackendFile,
			Seal:        seal.DefaultConfig(),
			RedisAddr:   "127.0.0.1:6379",
			RedisPrefix: "sentinel",
		},
	}
}

// LoadConfig loads Config from environment variables on top of DefaultConfig.
// Unparseable values fail with ErrConfig.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	env := &envReader{}

	cfg.LogLevel = env.String("SENTINEL_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = env.String("SENTINEL_LOG_FORMAT", cfg.LogFormat)
	cfg.ControlAddr = env.String("SENTINEL_CONTROL_ADDR", cfg.ControlAddr)
	cfg.Location = env.String("SENTINEL_LOCATION", "")
	cfg.AuthAttemptLimit = env.Int("SENTINEL_CONTROL_AUTH_LIMIT", cfg.AuthAttemptLimit)
	cfg.AuthAttemptWindow = env.Duration("SENTINEL_CONTROL_AUTH_WINDOW", cfg.AuthAttemptWindow)

	cfg.API.BaseURL = env.String("SENTINEL_API_BASE_URL", cfg.API.BaseURL)
	cfg.API.Timeout = env.Duration("SENTINEL_HTTP_TIMEOUT", cfg.API.Timeout)

	cfg.Session.TTL = env.Duration("SENTINEL_SESSION_TTL", cfg.Session.TTL)
	cfg.Session.LogoutTimeout = env.Duration("SENTINEL_LOGOUT_TIMEOUT", cfg.Session.LogoutTimeout)

	rt := &cfg.Realtime
	rt.URL = env.String("SENTINEL_WS_URL", rt.URL)
	rt.HandshakeTimeout = env.Duration("SENTINEL_WS_HANDSHAKE_TIMEOUT", rt.HandshakeTimeout)
	rt.WriteTimeout = env.Duration("SENTINEL_WS_WRITE_TIMEOUT", rt.WriteTimeout)
	rt.HeartbeatInterval = env.Duration("SENTINEL_WS_HEARTBEAT_INTERVAL", rt.HeartbeatInterval)
	rt.HeartbeatTimeout = env.Duration("SENTINEL_WS_HEARTBEAT_TIMEOUT", rt.HeartbeatTimeout)
	rt.Reconnect = env.Bool("SENTINEL_WS_RECONNECT", rt.Reconnect)
	rt.ReconnectMaxInterval = env.Duration("SENTINEL_WS_RECONNECT_MAX_INTERVAL", rt.ReconnectMaxInterval)
	rt.InboundQueue = env.Int("SENTINEL_WS_INBOUND_QUEUE", rt.InboundQueue)

	cr := &cfg.Credential
	cr.Backend = env.String("SENTINEL_CREDENTIAL_BACKEND", cr.Backend)
	cr.Path = env.String("SENTINEL_CREDENTIAL_PATH", "")
	cr.Passphrase = os.Getenv("SENTINEL_CREDENTIAL_PASSPHRASE")
	cr.RedisAddr = env.String("SENTINEL_REDIS_ADDR", cr.RedisAddr)
	cr.RedisPrefix = env.String("SENTINEL_REDIS_PREFIX", cr.RedisPrefix)
	cr.DatabaseURL = env.String("SENTINEL_DATABASE_URL", "")
	cr.DeviceID = env.String("SENTINEL_DEVICE_ID", hostname())

	if err := env.err(); err != nil {
		return Config{}, err
	}

	sealCfg, err := seal.FromEnv()
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	cr.Seal = sealCfg

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the component configs.
func (c Config) Validate() error {
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := c.Realtime.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if c.AuthAttemptLimit < 0 || (c.AuthAttemptLimit > 0 && c.AuthAttemptWindow <= 0) {
		return fmt.Errorf("%w: auth attempt limit %d per %s", ErrConfig, c.AuthAttemptLimit, c.AuthAttemptWindow)
	}
	switch c.LogFormat {
	case "json", "pretty":
	default:
		return fmt.Errorf("%w: log format %q", ErrConfig, c.LogFormat)
	}
	return nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "default"
	}
	return h
}
