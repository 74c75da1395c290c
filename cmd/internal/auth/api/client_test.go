package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	c, err := NewClient(cfg, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if _, err := uuid.Parse(r.Header.Get("X-Request-ID")); err != nil {
			t.Errorf("X-Request-ID is not a uuid: %q", r.Header.Get("X-Request-ID"))
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type=%q", ct)
		}

		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "ravi@example.com" || body["password"] != "hunter22" {
			t.Errorf("unexpected body %v", body)
		}

		_, _ = io.WriteString(w, `{"success":true,"token":"tok-1","user":{"id":"u-1","name":"Ravi","email":"ravi@example.com","isAdmin":true}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/api/")
	res, err := c.Login(context.Background(), " ravi@example.com ", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token != "tok-1" || res.User.ID != "u-1" || !res.User.IsAdmin || res.User.Name != "Ravi" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestLogin_DeclaredFailureIsRejected(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		msg    string
	}{
		{name: "401 with reason", status: http.StatusUnauthorized, body: `{"success":false,"message":"Invalid credentials"}`, msg: "Invalid credentials"},
		{name: "200 with success false", status: http.StatusOK, body: `{"success":false,"message":"Account locked"}`, msg: "Account locked"},
		{name: "no reason", status: http.StatusBadRequest, body: `{"success":false}`, msg: ""},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv.URL).Login(context.Background(), "a@b.c", "x")
			if !errors.Is(err, ErrRejected) {
				t.Fatalf("err=%v want ErrRejected", err)
			}
			var rej *RejectedError
			if !errors.As(err, &rej) || rej.Message != tc.msg || rej.Status != tc.status {
				t.Fatalf("rejected=%+v", rej)
			}
		})
	}
}

func TestLogin_TransportFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		h    http.HandlerFunc
	}{
		{name: "html error page", h: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, "<html>bad gateway</html>")
		}},
		{name: "success without token", h: func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"success":true,"user":{"id":"u-1"}}`)
		}},
		{name: "success without user", h: func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"success":true,"token":"t"}`)
		}},
		{name: "success without user name or email", h: func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"success":true,"token":"t","user":{"id":"u-1"}}`)
		}},
		{name: "success with blank email", h: func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"success":true,"token":"t","user":{"id":"u-1","name":"Ravi","email":"  "}}`)
		}},
		{name: "trailing garbage", h: func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"success":false}{"x":1}`)
		}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(tc.h)
			defer srv.Close()

			_, err := newTestClient(t, srv.URL).Login(context.Background(), "a@b.c", "x")
			if !errors.Is(err, ErrTransport) {
				t.Fatalf("err=%v want ErrTransport", err)
			}
		})
	}
}

func TestLogin_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url).Login(context.Background(), "a@b.c", "x")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("err=%v want ErrTransport", err)
	}
}

func TestSignup_FlattensProfile(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/signup" {
			t.Errorf("path=%s", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		want := map[string]any{
			"name":          "Meera",
			"email":         "meera@example.com",
			"password":      "s3cret!",
			"boatLicenseId": "MH-1234",
			"experience":    "5 years",
			"port":          "Sassoon Dock",
		}
		for k, v := range want {
			if body[k] != v {
				t.Errorf("body[%q]=%v want %v", k, body[k], v)
			}
		}
		if _, nested := body["profile"]; nested {
			t.Errorf("profile must be flattened: %v", body)
		}
		_, _ = io.WriteString(w, `{"success":true,"token":"tok-2","user":{"id":"u-2","name":"Meera","email":"meera@example.com"},"message":"Account created"}`)
	}))
	defer srv.Close()

	res, err := newTestClient(t, srv.URL).Signup(context.Background(), SignupRequest{
		Name:          "Meera",
		Email:         "meera@example.com",
		Password:      "s3cret!",
		BoatLicenseID: "MH-1234",
		Experience:    "5 years",
		Port:          "Sassoon Dock",
	})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if res.Message != "Account created" || res.User.ID != "u-2" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestLogout_SendsBearer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/logout" {
			t.Errorf("path=%s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if err := c.Logout(context.Background(), "tok-1"); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := c.Logout(context.Background(), "wrong"); !errors.Is(err, ErrRejected) {
		t.Fatalf("Logout wrong token err=%v want ErrRejected", err)
	}
}

func TestNewClient_BadBaseURL(t *testing.T) {
	t.Parallel()

	for _, base := range []string{"", "ftp://x", "https://", "::bad"} {
		cfg := DefaultConfig()
		cfg.BaseURL = base
		if _, err := NewClient(cfg, nil, nil); !errors.Is(err, ErrConfig) {
			t.Fatalf("NewClient(%q) err=%v want ErrConfig", base, err)
		}
	}
}

func TestErrorsDoNotLeakPassword(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Login(context.Background(), "a@b.c", "p4ssw0rd-secret")
	if err == nil || strings.Contains(err.Error(), "p4ssw0rd-secret") {
		t.Fatalf("err=%v", err)
	}
}
