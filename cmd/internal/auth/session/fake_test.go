package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/auth/api"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/credential"
)

type fakeAuth struct {
	login  func(ctx context.Context, email, password string) (authapi.Result, error)
	signup func(ctx context.Context, in authapi.SignupRequest) (authapi.Result, error)
	logout func(ctx context.Context, token string) error

	mu          sync.Mutex
	logoutCalls []string
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (authapi.Result, error) {
	return f.login(ctx, email, password)
}

func (f *fakeAuth) Signup(ctx context.Context, in authapi.SignupRequest) (authapi.Result, error) {
	return f.signup(ctx, in)
}

func (f *fakeAuth) Logout(ctx context.Context, token string) error {
	f.mu.Lock()
	f.logoutCalls = append(f.logoutCalls, token)
	f.mu.Unlock()
	if f.logout == nil {
		return nil
	}
	return f.logout(ctx, token)
}

func (f *fakeAuth) LogoutCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.logoutCalls...)
}

func okResult(userID string, admin bool) authapi.Result {
	return authapi.Result{
		Token: "tok-" + userID,
		User:  authapi.User{ID: userID, Name: "Ravi Kumar", Email: "ravi@example.com", IsAdmin: admin},
	}
}

func loginAs(userID string, admin bool) func(context.Context, string, string) (authapi.Result, error) {
	return func(context.Context, string, string) (authapi.Result, error) {
		return okResult(userID, admin), nil
	}
}

type rtCall struct {
	Op         string
	UserID     string
	Privileged bool
}

type fakeRealtime struct {
	mu    sync.Mutex
	calls []rtCall
}

func (f *fakeRealtime) Connect(_ context.Context, userID string, privileged bool) error {
	f.mu.Lock()
	f.calls = append(f.calls, rtCall{Op: "connect", UserID: userID, Privileged: privileged})
	f.mu.Unlock()
	return nil
}

func (f *fakeRealtime) Disconnect(context.Context) error {
	f.mu.Lock()
	f.calls = append(f.calls, rtCall{Op: "disconnect"})
	f.mu.Unlock()
	return nil
}

func (f *fakeRealtime) Calls() []rtCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]rtCall(nil), f.calls...)
}

func (f *fakeRealtime) Connects() []rtCall {
	var out []rtCall
	for _, c := range f.Calls() {
		if c.Op == "connect" {
			out = append(out, c)
		}
	}
	return out
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock { return &clock{now: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// t0 is millisecond-aligned so stored and in-memory times compare equal.
var t0 = time.UnixMilli(1_760_000_000_000).UTC()

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, auth Authenticator, store credential.Store, rt Realtime, clk *clock) *Manager {
	t.Helper()
	m, err := NewManager(DefaultConfig(), auth, store, rt, discardLogger(), WithClock(clk.Now))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}
