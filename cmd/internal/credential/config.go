package credential

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/prakhar362/Ocean-Sentinal/cmd/security/seal"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config selects and configures a backend.
type Config struct {
	Backend string

	// Path is used by the file and sqlite backends. Empty means the default
	// location under the user config dir.
	Path string

	// Passphrase enables sealing for the file backend.
	Passphrase string
	Seal       seal.Config

	RedisAddr   string
	RedisPrefix string

	DatabaseURL string
	DeviceID    string
}

// Opened is a ready Store plus the function that releases its resources.
type Opened struct {
	Store Store
	Close func() error
}

// Open builds the configured backend.
func Open(ctx context.Context, cfg Config) (Opened, error) {
	noop := func() error { return nil }

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendMemory:
		return Opened{Store: NewMemoryStore(), Close: noop}, nil

	case "", BackendFile:
		path := cfg.Path
		if path == "" {
			p, err := DefaultFilePath("session.json")
			if err != nil {
				return Opened{}, err
			}
			path = p
		}
		var opts []FileOption
		if cfg.Passphrase != "" {
			s, err := seal.New(cfg.Passphrase, cfg.Seal)
			if err != nil {
				return Opened{}, fmt.Errorf("%w: %v", ErrConfig, err)
			}
			opts = append(opts, WithSealer(s))
		}
		fs, err := NewFileStore(path, opts...)
		if err != nil {
			return Opened{}, err
		}
		return Opened{Store: fs, Close: noop}, nil

	case BackendSQLite:
		path := cfg.Path
		if path == "" {
			p, err := DefaultFilePath("session.db")
			if err != nil {
				return Opened{}, err
			}
			path = p
		}
		s, err := OpenSQLite(ctx, path)
		if err != nil {
			return Opened{}, err
		}
		return Opened{Store: s, Close: s.Close}, nil

	case BackendRedis:
		if cfg.RedisAddr == "" {
			return Opened{}, fmt.Errorf("%w: redis backend requires an address", ErrConfig)
		}
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return Opened{}, fmt.Errorf("redis ping: %w", err)
		}
		return Opened{Store: NewRedisStore(rdb, cfg.RedisPrefix), Close: rdb.Close}, nil

	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return Opened{}, fmt.Errorf("%w: postgres backend requires a database url", ErrConfig)
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return Opened{}, fmt.Errorf("postgres connect: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return Opened{}, fmt.Errorf("postgres ping: %w", err)
		}
		s := NewPostgresStore(pool, cfg.DeviceID)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return Opened{}, err
		}
		return Opened{Store: s, Close: func() error { pool.Close(); return nil }}, nil
	}

	return Opened{}, fmt.Errorf("%w: unknown credential backend %q", ErrConfig, cfg.Backend)
}
