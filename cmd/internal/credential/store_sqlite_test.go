package credential

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newSQLiteTestStore(t *testing.T) (*SQLiteStore, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	s := NewSQLiteStore(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s, db
}

func TestSQLiteStore_Contract(t *testing.T) {
	t.Parallel()

	s, _ := newSQLiteTestStore(t)
	exerciseStore(t, s)
}

func TestOpenSQLite_File(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dir", "session.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)

	rec := sampleRecord("u-7", time.UnixMilli(1_760_000_000_000).UTC())
	require.NoError(t, s.Save(ctx, rec))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, rec, got)
}

func TestSQLiteStore_FailedSaveRollsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, db := newSQLiteTestStore(t)

	first := sampleRecord("u-1", time.UnixMilli(1_760_000_000_000).UTC())
	require.NoError(t, s.Save(ctx, first))

	// Abort once token and user rows of the new record are already written.
	_, err := db.ExecContext(ctx, `
		CREATE TRIGGER fail_user_id BEFORE INSERT ON credentials
		WHEN NEW.key = 'userId' AND NEW.value = 'u-fail'
		BEGIN
			SELECT RAISE(ABORT, 'injected failure');
		END`)
	require.NoError(t, err)

	err = s.Save(ctx, sampleRecord("u-fail", time.Now()))
	require.Error(t, err)
	require.Contains(t, err.Error(), "injected failure")

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, first, got)
}

func TestSQLiteStore_PartialRowsAreCorrupt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, db := newSQLiteTestStore(t)

	_, err := db.ExecContext(ctx, `INSERT INTO credentials (key, value) VALUES ('token', 'abc')`)
	require.NoError(t, err)

	_, err = s.Load(ctx)
	require.ErrorIs(t, err, ErrCorrupt)
}
