package credential

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sampleRecord(userID string, issued time.Time) Record {
	return Record{
		Token: "tok-" + userID,
		User: User{
			ID:      userID,
			Name:    "Ravi Kumar",
			Email:   "ravi@example.com",
			IsAdmin: false,
		},
		IssuedAt: issued,
	}
}

// exerciseStore runs the contract every backend must satisfy.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound, "empty store")

	require.NoError(t, s.Clear(ctx), "clear on empty store")

	issued := time.UnixMilli(1_760_000_000_123).UTC()
	first := sampleRecord("u-1", issued)
	require.NoError(t, s.Save(ctx, first))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, first, got)

	second := sampleRecord("u-2", issued.Add(time.Hour))
	second.User.IsAdmin = true
	require.NoError(t, s.Save(ctx, second))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, second, got)

	require.NoError(t, s.Clear(ctx))
	_, err = s.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound, "after clear")

	require.ErrorIs(t, s.Save(ctx, Record{Token: "t"}), ErrIncomplete)
	_, err = s.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound, "rejected save must not write")
}

func TestMemoryStore_Contract(t *testing.T) {
	t.Parallel()
	exerciseStore(t, NewMemoryStore())
}

func TestDecode(t *testing.T) {
	t.Parallel()

	good := map[string]string{
		KeyToken:     "abc",
		KeyUser:      `{"id":"u-1","name":"A","email":"a@b.c","isAdmin":true}`,
		KeyUserID:    "u-1",
		KeyTimestamp: "1760000000000",
	}
	with := func(k, v string) map[string]string {
		m := make(map[string]string, len(good))
		for gk, gv := range good {
			m[gk] = gv
		}
		if v == "<delete>" {
			delete(m, k)
		} else {
			m[k] = v
		}
		return m
	}

	cases := []struct {
		name string
		in   map[string]string
		want error
	}{
		{name: "complete", in: good},
		{name: "nothing stored", in: map[string]string{}, want: ErrNotFound},
		{name: "missing token", in: with(KeyToken, "<delete>"), want: ErrCorrupt},
		{name: "missing timestamp", in: with(KeyTimestamp, "<delete>"), want: ErrCorrupt},
		{name: "user not json", in: with(KeyUser, "{"), want: ErrCorrupt},
		{name: "user id mismatch", in: with(KeyUserID, "u-2"), want: ErrCorrupt},
		{name: "bad timestamp", in: with(KeyTimestamp, "yesterday"), want: ErrCorrupt},
		{name: "empty token", in: with(KeyToken, ""), want: ErrCorrupt},
		{name: "user without name or email", in: with(KeyUser, `{"id":"u-1"}`), want: ErrCorrupt},
		{name: "user with blank email", in: with(KeyUser, `{"id":"u-1","name":"A","email":""}`), want: ErrCorrupt},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r, err := decode("test", tc.in)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("decode: %v", err)
				}
				if r.User.ID != "u-1" || !r.User.IsAdmin || r.IssuedAt.UnixMilli() != 1760000000000 {
					t.Fatalf("unexpected record: %+v", r)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("decode err=%v want %v", err, tc.want)
			}
		})
	}
}

func TestCorruptError_UnwrapsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk on fire")
	err := corrupt("file", "unreadable", cause)

	if !errors.Is(err, ErrCorrupt) || !errors.Is(err, cause) {
		t.Fatalf("expected both ErrCorrupt and cause, got %v", err)
	}
	var ce *CorruptError
	if !errors.As(err, &ce) || ce.Backend != "file" {
		t.Fatalf("errors.As failed: %v", err)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{Backend: "floppy"})
	require.ErrorIs(t, err, ErrConfig)
}

func TestOpen_RedisWithoutAddr(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{Backend: BackendRedis})
	require.ErrorIs(t, err, ErrConfig)
}
