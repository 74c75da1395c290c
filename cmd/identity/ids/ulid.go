// Package ids provides the identifier primitives (ULID) used across the client core.
package ids

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   io.Reader = ulid.Monotonic(rand.Reader, 0)
)

// NewULID returns a new ULID string (26 chars).
// IDs minted within the same millisecond stay strictly ordered.
func NewULID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	entropyMu.Lock()
	defer entropyMu.Unlock()

	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Prefixed returns "<prefix>_<ulid>", falling back to a time-only ULID when entropy fails.
// It is meant for log correlation ids (alert_…, conn_…), never for secrets.
func Prefixed(prefix string, now time.Time) string {
	id, err := NewULID(now)
	if err != nil {
		id = ulid.MustNew(ulid.Timestamp(now), nil).String()
	}
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
