// Package telemetry holds the Prometheus collectors shared by the client core.
//
// A nil *Metrics is valid and records nothing.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sentinel"

// Metrics groups every collector the client exports.
type Metrics struct {
	wsState            *prometheus.GaugeVec
	wsDials            *prometheus.CounterVec
	wsReconnects       prometheus.Counter
	wsInbound          *prometheus.CounterVec
	wsOutbound         *prometheus.CounterVec
	authOperations     *prometheus.CounterVec
	alerts             *prometheus.CounterVec
	connectionStateSet []string
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer, connectionStates []string) (*Metrics, error) {
	m := &Metrics{
		wsState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_state",
			Help:      "Realtime connection state; 1 for the current state.",
		}, []string{"state"}),
		wsDials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_dials_total",
			Help:      "Websocket dial attempts by result.",
		}, []string{"result"}),
		wsReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_reconnects_scheduled_total",
			Help:      "Reconnect attempts scheduled after a drop or failed dial.",
		}),
		wsInbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_inbound_total",
			Help:      "Inbound frames by result (accepted, malformed, dropped).",
		}, []string{"result"}),
		wsOutbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_outbound_total",
			Help:      "Outbound frames written by envelope type.",
		}, []string{"type"}),
		authOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_operations_total",
			Help:      "Session operations by operation and result.",
		}, []string{"op", "result"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "SOS alerts by result.",
		}, []string{"result"}),
		connectionStateSet: connectionStates,
	}

	for _, c := range []prometheus.Collector{
		m.wsState, m.wsDials, m.wsReconnects, m.wsInbound, m.wsOutbound, m.authOperations, m.alerts,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	for _, s := range connectionStates {
		m.wsState.WithLabelValues(s).Set(0)
	}
	return m, nil
}

// SetConnectionState marks state as current.
func (m *Metrics) SetConnectionState(state string) {
	if m == nil {
		return
	}
	for _, s := range m.connectionStateSet {
		m.wsState.WithLabelValues(s).Set(0)
	}
	m.wsState.WithLabelValues(state).Set(1)
}

// Dial records a dial attempt result ("ok", "error", "canceled").
func (m *Metrics) Dial(result string) {
	if m == nil {
		return
	}
	m.wsDials.WithLabelValues(result).Inc()
}

// ReconnectScheduled records one scheduled reconnect.
func (m *Metrics) ReconnectScheduled() {
	if m == nil {
		return
	}
	m.wsReconnects.Inc()
}

// Inbound records an inbound frame result ("accepted", "malformed", "dropped").
func (m *Metrics) Inbound(result string) {
	if m == nil {
		return
	}
	m.wsInbound.WithLabelValues(result).Inc()
}

// Outbound records one written frame of the given envelope type.
func (m *Metrics) Outbound(typ string) {
	if m == nil {
		return
	}
	m.wsOutbound.WithLabelValues(typ).Inc()
}

// AuthOperation records a session operation outcome.
func (m *Metrics) AuthOperation(op, result string) {
	if m == nil {
		return
	}
	m.authOperations.WithLabelValues(op, result).Inc()
}

// Alert records an alert outcome.
func (m *Metrics) Alert(result string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(result).Inc()
}
