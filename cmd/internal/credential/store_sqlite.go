package credential

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS credentials (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQLiteStore keeps the record as rows of a single-table SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty sqlite path", ErrConfig)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create credential dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// One connection: the database is private to this process and ":memory:"
	// databases are per-connection.
	db.SetMaxOpenConns(1)

	s := NewSQLiteStore(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an already opened database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Migrate creates the credentials table if needed.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("sqlite migrate: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Save replaces the stored record in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, r Record) error {
	values, err := encode(r)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
		return fmt.Errorf("sqlite save: %w", err)
	}
	for _, k := range Keys {
		if _, err := tx.ExecContext(ctx, `INSERT INTO credentials (key, value) VALUES (?, ?)`, k, values[k]); err != nil {
			return fmt.Errorf("sqlite save %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// Load returns the stored record.
func (s *SQLiteStore) Load(ctx context.Context) (Record, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(Keys)), ",")
	args := make([]any, len(Keys))
	for i, k := range Keys {
		args[i] = k
	}

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM credentials WHERE key IN (`+placeholders+`)`, args...)
	if err != nil {
		return Record{}, corrupt("sqlite", "query failed", err)
	}
	defer rows.Close()

	values := make(map[string]string, len(Keys))
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Record{}, corrupt("sqlite", "scan failed", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return Record{}, corrupt("sqlite", "rows failed", err)
	}
	return decode("sqlite", values)
}

// Clear removes every stored key in one statement.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
		return fmt.Errorf("sqlite clear: %w", err)
	}
	return nil
}
