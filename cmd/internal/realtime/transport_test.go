package realtime

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func TestManager_WebsocketEndToEnd(t *testing.T) {
	t.Parallel()

	received := make(chan string, 8)
	closeStatus := make(chan websocket.StatusCode, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = c.CloseNow() }()

		ctx := r.Context()
		_, data, err := c.Read(ctx)
		if err != nil {
			return
		}
		received <- string(data)

		_ = c.Write(ctx, websocket.MessageText, []byte(`not json`))
		_ = c.Write(ctx, websocket.MessageText, []byte(`{"type":"hazard_update","payload":{"id":"h1"}}`))

		for {
			_, data, err := c.Read(ctx)
			if err != nil {
				closeStatus <- websocket.CloseStatus(err)
				return
			}
			received <- string(data)
		}
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.URL = "ws" + strings.TrimPrefix(srv.URL, "http")

	m, err := NewManager(cfg, discardLogger())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	if err := m.Connect(ctx, "u-42", false); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	waitState(t, m, StateOpen)

	if got := recv(t, received); got != `{"type":"connect","payload":{"userId":"u-42","isAdmin":false}}` {
		t.Fatalf("announce=%s", got)
	}

	select {
	case env := <-m.Inbound():
		if env.Type != "hazard_update" {
			t.Fatalf("inbound type=%q", env.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no inbound envelope")
	}

	sos := `{"type":"sos_notification","payload":{"latitude":19.07,"longitude":72.87,"msg":"Boat capsized near reef"}}`
	if err := m.Send(ctx, []byte(sos)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := recv(t, received); got != sos {
		t.Fatalf("server got %s", got)
	}

	if err := m.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	select {
	case code := <-closeStatus:
		if code != websocket.StatusNormalClosure {
			t.Fatalf("server saw close status %v", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server never saw close")
	}
}

func TestManager_HandshakeFailureReturnsToDisconnected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	rec := &stateRecorder{}
	cfg := testConfig()
	cfg.URL = "ws" + strings.TrimPrefix(srv.URL, "http")

	m, err := NewManager(cfg, discardLogger(), WithStateObserver(rec.observe))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	if err := m.Connect(ctx, "u-1", false); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for len(rec.get()) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("transitions=%v", rec.get())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := rec.get(); got[0] != StateConnecting || got[1] != StateDisconnected {
		t.Fatalf("transitions=%v", got)
	}
}

func TestClassifyReadErr(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want readErrKind
	}{
		{err: websocket.CloseError{Code: websocket.StatusGoingAway}, want: readErrClose},
		{err: context.Canceled, want: readErrCtxDone},
		{err: net.ErrClosed, want: readErrConnClosed},
		{err: errors.New("weird"), want: readErrUnknown},
	}
	for _, tc := range cases {
		if got := classifyReadErr(tc.err); got != tc.want {
			t.Fatalf("classifyReadErr(%v)=%s want %s", tc.err, got, tc.want)
		}
	}
}

func recv(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("server received nothing")
		return ""
	}
}
