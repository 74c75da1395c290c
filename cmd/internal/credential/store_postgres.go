package credential

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS sentinel_credentials (
	device_id TEXT NOT NULL,
	key       TEXT NOT NULL,
	value     TEXT NOT NULL,
	PRIMARY KEY (device_id, key)
)`

// PostgresStore keeps the record in Postgres, scoped by device id so several
// clients can share one database.
type PostgresStore struct {
	pool     *pgxpool.Pool
	deviceID string
}

// NewPostgresStore creates a Postgres-backed credential store.
func NewPostgresStore(pool *pgxpool.Pool, deviceID string) *PostgresStore {
	if deviceID == "" {
		deviceID = "default"
	}
	return &PostgresStore{pool: pool, deviceID: deviceID}
}

// Migrate creates the credentials table if needed.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

// Save replaces the stored record in one transaction.
func (s *PostgresStore) Save(ctx context.Context, r Record) error {
	values, err := encode(r)
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM sentinel_credentials WHERE device_id = $1`, s.deviceID); err != nil {
			return fmt.Errorf("postgres save: %w", err)
		}
		for _, k := range Keys {
			if _, err := tx.Exec(ctx, `
				INSERT INTO sentinel_credentials (device_id, key, value)
				VALUES ($1, $2, $3)
			`, s.deviceID, k, values[k]); err != nil {
				return fmt.Errorf("postgres save %s: %w", k, err)
			}
		}
		return nil
	})
}

// Load returns the stored record.
func (s *PostgresStore) Load(ctx context.Context) (Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT key, value
		FROM sentinel_credentials
		WHERE device_id = $1 AND key = ANY($2)
	`, s.deviceID, Keys)
	if err != nil {
		return Record{}, corrupt("postgres", "query failed", err)
	}
	defer rows.Close()

	values := make(map[string]string, len(Keys))
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Record{}, corrupt("postgres", "scan failed", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return Record{}, corrupt("postgres", "rows failed", err)
	}
	return decode("postgres", values)
}

// Clear removes the stored record in one statement.
func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sentinel_credentials WHERE device_id = $1`, s.deviceID); err != nil {
		return fmt.Errorf("postgres clear: %w", err)
	}
	return nil
}
