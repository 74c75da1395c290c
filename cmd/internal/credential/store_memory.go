package credential

import (
	"context"
	"maps"
	"sync"
)

// MemoryStore keeps the record in process memory.
// Used by tests and by one-shot commands that must not touch disk.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save replaces the stored record.
func (s *MemoryStore) Save(ctx context.Context, r Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	values, err := encode(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.values = values
	s.mu.Unlock()
	return nil
}

// Load returns the stored record.
func (s *MemoryStore) Load(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	values := maps.Clone(s.values)
	s.mu.Unlock()

	return decode("memory", values)
}

// Clear removes the stored record.
func (s *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.values = nil
	s.mu.Unlock()
	return nil
}
