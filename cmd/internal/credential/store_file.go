package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
)

const appDirName = "ocean-sentinel"

// DefaultFilePath returns <user config dir>/ocean-sentinel/<name>.
func DefaultFilePath(name string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(dir, appDirName, name), nil
}

// FileStore keeps the record as one JSON object in one file.
// Writes go to a temp file that is renamed over the target.
type FileStore struct {
	path   string
	sealer Sealer

	mu sync.Mutex
}

// FileOption customizes a FileStore.
type FileOption func(*FileStore)

// WithSealer encrypts the file contents with s.
func WithSealer(s Sealer) FileOption {
	return func(fs *FileStore) { fs.sealer = s }
}

// NewFileStore constructs a FileStore at path.
func NewFileStore(path string, opts ...FileOption) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty credential path", ErrConfig)
	}
	s := &FileStore{path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Save replaces the stored record.
func (s *FileStore) Save(ctx context.Context, r Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	values, err := encode(r)
	if err != nil {
		return err
	}
	b, err := json.Marshal(values)
	if err != nil {
		return err
	}
	if s.sealer != nil {
		if b, err = s.sealer.Seal(b); err != nil {
			return fmt.Errorf("seal credentials: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(b)); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// Load returns the stored record.
func (s *FileStore) Load(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	b, err := os.ReadFile(s.path)
	s.mu.Unlock()

	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, corrupt("file", "unreadable", err)
	}

	if s.sealer != nil {
		if b, err = s.sealer.Open(b); err != nil {
			return Record{}, corrupt("file", "cannot open sealed data", err)
		}
	}

	var values map[string]string
	if err := json.Unmarshal(b, &values); err != nil {
		return Record{}, corrupt("file", "not a json object", err)
	}
	return decode("file", values)
}

// Clear removes the backing file.
func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}
