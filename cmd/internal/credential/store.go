package credential

import "context"

// Store persists at most one Record.
//
// Save and Clear are all-or-nothing: a failure partway through never leaves
// a mix of old and new keys readable by Load.
type Store interface {
	// Save replaces the stored record.
	Save(ctx context.Context, r Record) error

	// Load returns the stored record, ErrNotFound when none, or an error
	// wrapping ErrCorrupt when stored data is unreadable or partial.
	Load(ctx context.Context) (Record, error)

	// Clear removes the stored record. Clearing an empty store succeeds.
	Clear(ctx context.Context) error
}

// Sealer encrypts data at rest. *seal.Sealer satisfies it.
type Sealer interface {
	Seal(plain []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}
