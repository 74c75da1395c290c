// Package main is a smoke test that drives the client core against a live
// realtime endpoint.
//
// It validates:
//   - optional login against the auth API (in-memory credentials only)
//   - handshake and transition to open
//   - the connect announce (server side is not observable; a clean open is the check)
//   - optional SOS send through the alert dispatcher
//   - inbound envelopes for a short listen window
//   - explicit disconnect back to disconnected
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/alert"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/auth/api"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/auth/session"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/credential"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/location"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/realtime"
)

func main() {
	var (
		wsURL    = flag.String("url", realtime.DefaultURL, "realtime endpoint")
		apiURL   = flag.String("api", authapi.DefaultBaseURL, "auth API base URL (used with -email)")
		email    = flag.String("email", "", "log in with this account instead of -user")
		password = flag.String("password", os.Getenv("SENTINEL_SMOKE_PASSWORD"), "password for -email")
		userID   = flag.String("user", "smoke-user", "user id to announce when not logging in")
		admin    = flag.Bool("admin", false, "announce as privileged")
		sos      = flag.String("sos", "", "send this SOS text once open")
		pos      = flag.String("pos", "19.0760,72.8777", "lat,lon for -sos")
		listen   = flag.Duration("listen", 2*time.Second, "how long to print inbound envelopes")
		timeout  = flag.Duration("timeout", 15*time.Second, "per-step timeout")
		verbose  = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if err := validateWSURL(*wsURL); err != nil {
		fatalf("invalid -url: %v", err)
	}

	var logOut io.Writer = io.Discard
	if *verbose {
		logOut = os.Stderr
	}
	log := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: slog.LevelDebug}))

	root, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := realtime.DefaultConfig()
	cfg.URL = *wsURL
	cfg.Reconnect = false
	conn, err := realtime.NewManager(cfg, log, realtime.WithStateObserver(func(s realtime.State) {
		if *verbose {
			fmt.Printf("state: %s\n", s)
		}
	}))
	if err != nil {
		fatalf("realtime: %v", err)
	}
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = conn.Run(root)
	}()

	if *email != "" {
		mustLogin(root, log, conn, *apiURL, *email, *password, *timeout)
	} else if err := conn.Connect(root, *userID, *admin); err != nil {
		fatalf("connect: %v", err)
	}

	mustWaitState(root, conn, realtime.StateOpen, *timeout)
	fmt.Printf("open: url=%s\n", *wsURL)

	if *sos != "" {
		p, err := location.Parse(*pos)
		if err != nil {
			fatalf("invalid -pos: %v", err)
		}
		d := alert.NewDispatcher(conn, location.Static{P: p}, log, nil)
		ctx, stepCancel := context.WithTimeout(root, *timeout)
		rec, err := d.SendCurrent(ctx, *sos)
		stepCancel()
		if err != nil {
			fatalf("sos: %v", err)
		}
		fmt.Printf("sos sent: alert_id=%s\n", rec.AlertID)
	}

	n := drainInbound(conn, *listen)

	ctx, stepCancel := context.WithTimeout(root, *timeout)
	if err := conn.Disconnect(ctx); err != nil {
		fatalf("disconnect: %v", err)
	}
	stepCancel()
	mustWaitState(root, conn, realtime.StateDisconnected, *timeout)

	cancel()
	<-loopDone
	fmt.Printf("OK: inbound=%d\n", n)
}

func mustLogin(parent context.Context, log *slog.Logger, conn *realtime.Manager, apiURL, email, password string, stepTimeout time.Duration) {
	if password == "" {
		fatalf("-email needs -password or SENTINEL_SMOKE_PASSWORD")
	}
	apiCfg := authapi.DefaultConfig()
	apiCfg.BaseURL = apiURL
	client, err := authapi.NewClient(apiCfg, nil, log)
	if err != nil {
		fatalf("auth client: %v", err)
	}
	sessions, err := session.NewManager(session.DefaultConfig(), client, credential.NewMemoryStore(), conn, log)
	if err != nil {
		fatalf("session: %v", err)
	}

	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()
	s, err := sessions.Login(ctx, email, password)
	if err != nil {
		fatalf("login: %v", err)
	}
	fmt.Printf("logged in: user_id=%s privileged=%t\n", s.UserID, s.IsPrivileged)
}

func mustWaitState(parent context.Context, conn *realtime.Manager, want realtime.State, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()
	if err := conn.WaitForState(ctx, want); err != nil {
		fatalf("waiting for %s: %v (state=%s)", want, err, conn.State())
	}
}

func drainInbound(conn *realtime.Manager, window time.Duration) int {
	n := 0
	deadline := time.After(window)
	for {
		select {
		case env := <-conn.Inbound():
			n++
			fmt.Printf("inbound: type=%s payload=%s\n", env.Type, env.Payload)
		case <-deadline:
			return n
		}
	}
}

func validateWSURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	return nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
