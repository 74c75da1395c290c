package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.SetConnectionState("open")
	m.Dial("ok")
	m.ReconnectScheduled()
	m.Inbound("accepted")
	m.Outbound("connect")
	m.AuthOperation("login", "ok")
	m.Alert("sent")
}

func TestMetrics_Record(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := New(reg, []string{"disconnected", "connecting", "open", "closing"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	m.SetConnectionState("connecting")
	m.SetConnectionState("open")
	if got := testutil.ToFloat64(m.wsState.WithLabelValues("open")); got != 1 {
		t.Fatalf("ws_state{open}=%v want 1", got)
	}
	if got := testutil.ToFloat64(m.wsState.WithLabelValues("connecting")); got != 0 {
		t.Fatalf("ws_state{connecting}=%v want 0", got)
	}

	m.Dial("ok")
	m.Dial("ok")
	m.Dial("error")
	if got := testutil.ToFloat64(m.wsDials.WithLabelValues("ok")); got != 2 {
		t.Fatalf("ws_dials_total{ok}=%v want 2", got)
	}

	m.AuthOperation("login", "auth_failed")
	if got := testutil.ToFloat64(m.authOperations.WithLabelValues("login", "auth_failed")); got != 1 {
		t.Fatalf("auth_operations_total=%v want 1", got)
	}
}

func TestNew_DoubleRegisterFails(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	if _, err := New(reg, nil); err != nil {
		t.Fatalf("first New: %v", err)
	}
	if _, err := New(reg, nil); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}
