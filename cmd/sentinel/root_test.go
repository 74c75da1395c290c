package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/auth/session"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/credential"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SENTINEL_CREDENTIAL_BACKEND", "memory")

	cmd := buildRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStatus_NoSession(t *testing.T) {
	out, err := runCLI(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, `"state": "no_session"`) || !strings.Contains(out, `"state": "disconnected"`) {
		t.Fatalf("status output:\n%s", out)
	}
}

func TestStatus_PersistedSessionDoesNotDial(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "session.json")
	store, err := credential.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	rec := credential.Record{
		Token:    "tok-1",
		User:     credential.User{ID: "u-1", Name: "Ravi", Email: "ravi@example.com"},
		IssuedAt: time.Now().UTC(),
	}
	if err := store.Save(context.Background(), rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	t.Setenv("SENTINEL_CREDENTIAL_PATH", path)
	t.Setenv("SENTINEL_WS_URL", "ws"+strings.TrimPrefix(srv.URL, "http"))

	out, err := runCLI(t, "--credential-backend", "file", "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, `"state": "active"`) || !strings.Contains(out, `"state": "disconnected"`) {
		t.Fatalf("status output:\n%s", out)
	}
	if n := hits.Load(); n != 0 {
		t.Fatalf("realtime endpoint hit %d times", n)
	}
}

func TestForgotPassword_Unavailable(t *testing.T) {
	_, err := runCLI(t, "forgot-password", "--email", "a@b.c")
	if err == nil || !strings.Contains(err.Error(), session.ErrRecoveryUnavailable.Error()) {
		t.Fatalf("err=%v", err)
	}
}

func TestLogin_RequiresPassword(t *testing.T) {
	_, err := runCLI(t, "login", "--email", "a@b.c")
	if err == nil || !strings.Contains(err.Error(), "password required") {
		t.Fatalf("err=%v", err)
	}
}

func TestSOS_RequiresSession(t *testing.T) {
	_, err := runCLI(t, "sos", "-m", "help", "--lat", "1", "--lon", "2")
	if err == nil || !strings.Contains(err.Error(), "not logged in") {
		t.Fatalf("err=%v", err)
	}
}

func TestInvalidFlagOverride(t *testing.T) {
	_, err := runCLI(t, "--log-format", "xml", "status")
	if err == nil {
		t.Fatalf("expected config error")
	}
}
