package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"

	"github.com/prakhar362/Ocean-Sentinal/cmd/identity/ids"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/telemetry"
	v1 "github.com/prakhar362/Ocean-Sentinal/shared/contracts/realtime/v1"
)

// Manager owns one logical websocket connection.
//
// All exported methods are safe for concurrent use. Connect, Disconnect and
// Send are processed by Run; they block (honouring ctx) until Run accepts them.
type Manager struct {
	cfg     Config
	log     *slog.Logger
	dialer  Dialer
	metrics *telemetry.Metrics
	observe func(State)

	events  chan event
	inbound chan v1.Envelope

	running atomic.Bool
	done    chan struct{}

	mu      sync.Mutex
	state   State
	changed chan struct{}

	// Loop-owned.
	runCtx     context.Context
	gen        uint64
	conn       *liveConn
	dialCancel context.CancelFunc
	ident      *identity
	timer      *time.Timer
	backoff    *backoff.ExponentialBackOff
}

type identity struct {
	userID     string
	privileged bool
}

type liveConn struct {
	gen       uint64
	attemptID string
	t         Transport
	cancel    context.CancelFunc
}

// Option customizes a Manager.
type Option func(*Manager)

// WithDialer replaces the default coder/websocket dialer.
func WithDialer(d Dialer) Option {
	return func(m *Manager) { m.dialer = d }
}

// WithMetrics records connection metrics on mt.
func WithMetrics(mt *telemetry.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithStateObserver calls fn synchronously on every state change.
// fn runs on the Manager loop and must not call back into the Manager.
func WithStateObserver(fn func(State)) Option {
	return func(m *Manager) { m.observe = fn }
}

// NewManager constructs a Manager. Call Run to start it.
func NewManager(cfg Config, log *slog.Logger, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	m := &Manager{
		cfg:     cfg,
		log:     log,
		events:  make(chan event, cfg.EventQueue),
		inbound: make(chan v1.Envelope, cfg.InboundQueue),
		done:    make(chan struct{}),
		state:   StateDisconnected,
		changed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.dialer == nil {
		m.dialer = WebsocketDialer{ReadLimit: cfg.ReadLimit}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.ReconnectInitialInterval
	b.MaxInterval = cfg.ReconnectMaxInterval
	b.MaxElapsedTime = 0
	b.Reset()
	m.backoff = b

	m.metrics.SetConnectionState(StateDisconnected.String())
	return m, nil
}

// Inbound delivers decoded envelopes received while Open.
// Frames arriving while the queue is full are dropped. The channel is never closed.
func (m *Manager) Inbound() <-chan v1.Envelope { return m.inbound }

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// WaitForState blocks until the state equals want or ctx is done.
func (m *Manager) WaitForState(ctx context.Context, want State) error {
	for {
		m.mu.Lock()
		s, ch := m.state, m.changed
		m.mu.Unlock()

		if s == want {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Connect starts connecting as userID. It returns once the request is queued.
// It is a no-op when userID is empty or the connection is Open or Connecting.
func (m *Manager) Connect(ctx context.Context, userID string, privileged bool) error {
	if userID == "" {
		return nil
	}
	return m.post(ctx, connectCmd{id: identity{userID: userID, privileged: privileged}})
}

// Disconnect closes the connection and cancels any dial or pending reconnect.
// It returns once the state is Disconnected. Idempotent.
func (m *Manager) Disconnect(ctx context.Context) error {
	reply := make(chan struct{})
	if err := m.post(ctx, disconnectCmd{reply: reply}); err != nil {
		if errors.Is(err, ErrStopped) {
			return nil
		}
		return err
	}
	select {
	case <-reply:
		return nil
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send writes one frame. The write runs on the Manager loop, so the
// connection stays Open for its whole duration; otherwise ErrNotOpen.
// A failed write tears the connection down and is not retried.
func (m *Manager) Send(ctx context.Context, frame []byte) error {
	env, err := v1.Decode(frame)
	if err != nil {
		return fmt.Errorf("outbound frame: %w", err)
	}

	reply := make(chan error, 1)
	if err := m.post(ctx, sendCmd{ctx: ctx, typ: env.Type, data: frame, reply: reply}); err != nil {
		if errors.Is(err, ErrStopped) {
			return ErrNotOpen
		}
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-m.done:
		return ErrNotOpen
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) post(ctx context.Context, ev event) error {
	select {
	case <-m.done:
		return ErrStopped
	default:
	}
	select {
	case m.events <- ev:
		return nil
	case <-m.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes events until ctx is done, then closes any live connection.
func (m *Manager) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	select {
	case <-m.done:
		return ErrStopped
	default:
	}

	m.runCtx = ctx
	defer close(m.done)
	defer m.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-m.events:
			m.handle(ev)
		}
	}
}

func (m *Manager) handle(ev event) {
	switch ev := ev.(type) {
	case connectCmd:
		m.onConnect(ev)
	case disconnectCmd:
		m.onDisconnect()
		close(ev.reply)
	case sendCmd:
		ev.reply <- m.onSend(ev)
	case dialResult:
		m.onDialResult(ev)
	case inboundFrame:
		m.onInbound(ev)
	case readFailed:
		m.onReadFailed(ev)
	case heartbeatFailed:
		m.onHeartbeatFailed(ev)
	case reconnectDue:
		m.onReconnectDue(ev)
	}
}

func (m *Manager) onConnect(cmd connectCmd) {
	switch s := m.State(); s {
	case StateOpen, StateConnecting:
		m.log.Debug("ws.connect.skip", "state", s.String())
		return
	}

	m.stopTimer()
	id := cmd.id
	m.ident = &id
	m.backoff.Reset()
	m.startDial()
}

func (m *Manager) startDial() {
	m.gen++
	gen := m.gen
	attemptID := ids.Prefixed("conn", time.Now().UTC())

	ctx, cancel := context.WithTimeout(m.runCtx, m.cfg.HandshakeTimeout)
	m.dialCancel = cancel
	m.setState(StateConnecting)

	m.log.Info("ws.dial.start", "attempt_id", attemptID, "url", m.cfg.URL)

	go func() {
		t, err := m.dialer.Dial(ctx, m.cfg.URL)
		ev := dialResult{gen: gen, attemptID: attemptID, t: t, err: err}
		if perr := m.post(m.runCtx, ev); perr != nil && t != nil {
			_ = t.Close(websocket.StatusGoingAway, "client stopped")
		}
	}()
}

func (m *Manager) onDialResult(ev dialResult) {
	if ev.gen != m.gen || m.State() != StateConnecting {
		if ev.t != nil {
			m.log.Info("ws.dial.stale", "attempt_id", ev.attemptID)
			go func() { _ = ev.t.Close(websocket.StatusNormalClosure, "bye") }()
		}
		m.metrics.Dial("canceled")
		return
	}

	if m.dialCancel != nil {
		m.dialCancel()
		m.dialCancel = nil
	}

	if ev.err != nil {
		m.metrics.Dial("error")
		m.log.Warn("ws.dial.fail", "attempt_id", ev.attemptID, "err", ev.err)
		m.setState(StateDisconnected)
		m.scheduleReconnect()
		return
	}
	m.metrics.Dial("ok")

	announce, err := v1.Encode(v1.TypeConnect, v1.ConnectPayload{
		UserID:  m.ident.userID,
		IsAdmin: m.ident.privileged,
	})
	if err == nil {
		wctx, cancel := context.WithTimeout(m.runCtx, m.cfg.WriteTimeout)
		err = ev.t.Write(wctx, announce)
		cancel()
	}
	if err != nil {
		m.log.Warn("ws.announce.fail", "attempt_id", ev.attemptID, "close_status", websocket.CloseStatus(err), "err", err)
		go func() { _ = ev.t.Close(websocket.StatusGoingAway, "announce failed") }()
		m.setState(StateDisconnected)
		m.scheduleReconnect()
		return
	}
	m.metrics.Outbound(v1.TypeConnect)

	connCtx, cancel := context.WithCancel(m.runCtx)
	c := &liveConn{gen: ev.gen, attemptID: ev.attemptID, t: ev.t, cancel: cancel}
	m.conn = c

	go m.readLoop(connCtx, c)
	if m.cfg.HeartbeatInterval > 0 {
		go m.heartbeat(connCtx, c)
	}

	m.backoff.Reset()
	m.setState(StateOpen)
	m.log.Info("ws.connect.open", "attempt_id", c.attemptID, "user_id", m.ident.userID)
}

func (m *Manager) readLoop(ctx context.Context, c *liveConn) {
	for {
		data, err := c.t.Read(ctx)
		if err != nil {
			_ = m.post(ctx, readFailed{gen: c.gen, err: err})
			return
		}
		if err := m.post(ctx, inboundFrame{gen: c.gen, data: data}); err != nil {
			return
		}
	}
}

func (m *Manager) heartbeat(ctx context.Context, c *liveConn) {
	t := time.NewTicker(m.cfg.HeartbeatInterval)
	defer t.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			hbCtx, hbCancel := context.WithTimeout(ctx, m.cfg.HeartbeatTimeout)
			err := c.t.Ping(hbCtx)
			hbCancel()

			if err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
				m.log.Info("ws.ping.fail", "attempt_id", c.attemptID, "failures", failures, "err", err)
				if failures >= maxPingFailures {
					_ = m.post(ctx, heartbeatFailed{gen: c.gen})
					return
				}
				continue
			}
			failures = 0
		}
	}
}

func (m *Manager) isCurrent(gen uint64) bool {
	return m.conn != nil && m.conn.gen == gen
}

func (m *Manager) onInbound(ev inboundFrame) {
	if !m.isCurrent(ev.gen) {
		return
	}

	env, err := v1.Decode(ev.data)
	if err != nil {
		m.metrics.Inbound("malformed")
		m.log.Info("ws.inbound.malformed", "attempt_id", m.conn.attemptID, "bytes", len(ev.data), "err", err)
		return
	}

	select {
	case m.inbound <- env:
		m.metrics.Inbound("accepted")
	default:
		m.metrics.Inbound("dropped")
		m.log.Warn("ws.inbound.drop", "attempt_id", m.conn.attemptID, "type", env.Type)
	}
}

func (m *Manager) onReadFailed(ev readFailed) {
	if !m.isCurrent(ev.gen) {
		return
	}

	kind := classifyReadErr(ev.err)
	if kind == readErrClose {
		m.log.Info("ws.closed.peer", "attempt_id", m.conn.attemptID, "close_status", websocket.CloseStatus(ev.err))
	} else {
		m.log.Info("ws.read.fail", "attempt_id", m.conn.attemptID, "kind", kind.String(), "err", ev.err)
	}
	m.dropConn(websocket.StatusNormalClosure, "read ended")
}

func (m *Manager) onHeartbeatFailed(ev heartbeatFailed) {
	if !m.isCurrent(ev.gen) {
		return
	}
	m.log.Warn("ws.heartbeat.fail", "attempt_id", m.conn.attemptID, "failures", maxPingFailures)
	m.dropConn(websocket.StatusGoingAway, "heartbeat failed")
}

func (m *Manager) onSend(cmd sendCmd) error {
	if m.State() != StateOpen || m.conn == nil {
		return ErrNotOpen
	}
	if err := cmd.ctx.Err(); err != nil {
		return err
	}

	wctx, cancel := context.WithTimeout(cmd.ctx, m.cfg.WriteTimeout)
	err := m.conn.t.Write(wctx, cmd.data)
	cancel()

	if err != nil {
		m.log.Info("ws.write.fail", "attempt_id", m.conn.attemptID, "type", cmd.typ, "close_status", websocket.CloseStatus(err), "err", err)
		m.dropConn(websocket.StatusGoingAway, "write failed")
		return fmt.Errorf("write %s: %w", cmd.typ, err)
	}
	m.metrics.Outbound(cmd.typ)
	return nil
}

// dropConn releases a broken connection and schedules a reconnect.
func (m *Manager) dropConn(code websocket.StatusCode, reason string) {
	c := m.conn
	m.conn = nil
	c.cancel()
	go func() { _ = c.t.Close(code, reason) }()

	m.setState(StateDisconnected)
	m.scheduleReconnect()
}

func (m *Manager) onDisconnect() {
	m.stopTimer()
	m.ident = nil

	switch m.State() {
	case StateDisconnected:
		return

	case StateConnecting:
		m.setState(StateClosing)
		m.gen++
		if m.dialCancel != nil {
			m.dialCancel()
			m.dialCancel = nil
		}
		m.log.Info("ws.disconnect", "during", "dial")

	case StateOpen:
		m.setState(StateClosing)
		c := m.conn
		m.conn = nil
		// Close waits for the peer's close frame; keep the loop free meanwhile.
		go func() {
			err := c.t.Close(websocket.StatusNormalClosure, "bye")
			c.cancel()
			m.log.Info("ws.disconnect", "attempt_id", c.attemptID, "err", err)
		}()
	}

	m.setState(StateDisconnected)
}

func (m *Manager) scheduleReconnect() {
	if !m.cfg.Reconnect || m.ident == nil || m.runCtx.Err() != nil {
		return
	}
	m.stopTimer()

	d := m.backoff.NextBackOff()
	if d == backoff.Stop {
		m.log.Warn("ws.reconnect.exhausted")
		return
	}

	m.gen++
	gen := m.gen
	ctx := m.runCtx
	m.timer = time.AfterFunc(d, func() {
		_ = m.post(ctx, reconnectDue{gen: gen})
	})
	m.metrics.ReconnectScheduled()
	m.log.Info("ws.reconnect.scheduled", "delay_ms", d.Milliseconds())
}

func (m *Manager) onReconnectDue(ev reconnectDue) {
	if ev.gen != m.gen || m.State() != StateDisconnected || m.ident == nil {
		return
	}
	m.timer = nil
	m.startDial()
}

func (m *Manager) stopTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) shutdown() {
	m.stopTimer()
	m.ident = nil
	if m.dialCancel != nil {
		m.dialCancel()
		m.dialCancel = nil
	}
	if c := m.conn; c != nil {
		m.conn = nil
		m.setState(StateClosing)
		_ = c.t.Close(websocket.StatusNormalClosure, "bye")
		c.cancel()
	}
	m.setState(StateDisconnected)
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	if m.state == s {
		m.mu.Unlock()
		return
	}
	prev := m.state
	m.state = s
	close(m.changed)
	m.changed = make(chan struct{})
	m.mu.Unlock()

	m.metrics.SetConnectionState(s.String())
	m.log.Debug("ws.state", "from", prev.String(), "to", s.String())
	if m.observe != nil {
		m.observe(s)
	}
}

// ---- events ----

type event any

type connectCmd struct {
	id identity
}

type disconnectCmd struct {
	reply chan struct{}
}

type sendCmd struct {
	ctx   context.Context
	typ   string
	data  []byte
	reply chan error
}

type dialResult struct {
	gen       uint64
	attemptID string
	t         Transport
	err       error
}

type inboundFrame struct {
	gen  uint64
	data []byte
}

type readFailed struct {
	gen uint64
	err error
}

type heartbeatFailed struct {
	gen uint64
}

type reconnectDue struct {
	gen uint64
}
