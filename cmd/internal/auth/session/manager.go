package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/auth/api"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/credential"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/telemetry"
)

// Authenticator is the remote auth API. *authapi.Client implements it.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (authapi.Result, error)
	Signup(ctx context.Context, in authapi.SignupRequest) (authapi.Result, error)
	Logout(ctx context.Context, token string) error
}

// Realtime is the connection driven by the session. *realtime.Manager
// implements it.
type Realtime interface {
	Connect(ctx context.Context, userID string, privileged bool) error
	Disconnect(ctx context.Context) error
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithMetrics records auth operation outcomes.
func WithMetrics(mt *telemetry.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// Manager owns the session lifecycle.
type Manager struct {
	cfg     Config
	auth    Authenticator
	store   credential.Store
	rt      Realtime
	log     *slog.Logger
	metrics *telemetry.Metrics
	now     func() time.Time

	// sem serializes session-mutating operations.
	sem chan struct{}

	mu       sync.Mutex
	state    State
	current  *Session
	opCancel context.CancelFunc
}

// NewManager constructs a Manager in StateNoSession. Call Restore once at
// startup.
func NewManager(cfg Config, auth Authenticator, store credential.Store, rt Realtime, log *slog.Logger, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if auth == nil || store == nil || rt == nil {
		return nil, fmt.Errorf("%w: auth, store and realtime are required", ErrConfig)
	}
	if log == nil {
		log = slog.Default()
	}

	m := &Manager{
		cfg:   cfg,
		auth:  auth,
		store: store,
		rt:    rt,
		log:   log,
		now:   time.Now,
		sem:   make(chan struct{}, 1),
		state: StateNoSession,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns the active session.
func (m *Manager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

// Restore loads the persisted session. An absent, unreadable or expired
// record leaves the manager in StateNoSession and is not an error; the last
// two are cleared from storage. A valid record becomes the active session and
// the realtime connection is requested.
func (m *Manager) Restore(ctx context.Context) error {
	opCtx, release, err := m.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	m.setState(StateRestoring)

	rec, err := m.store.Load(opCtx)
	switch {
	case err == nil:
	case errors.Is(err, credential.ErrNotFound):
		m.forget(ctx)
		m.setState(StateNoSession)
		m.metrics.AuthOperation("restore", "absent")
		return nil
	case opCtx.Err() != nil:
		m.forget(ctx)
		m.setState(StateNoSession)
		return opCtx.Err()
	default:
		m.log.Warn("session.restore.corrupt", "err", err)
		m.cleanup(ctx)
		m.setState(StateNoSession)
		m.metrics.AuthOperation("restore", "corrupt")
		return nil
	}

	s := fromRecord(rec, m.cfg.TTL)
	now := m.now()
	if now.After(s.ExpiresAt) {
		m.setState(StateExpired)
		m.log.Info("session.restore.expired",
			"user_id", s.UserID,
			"issued_at", s.IssuedAt,
			"expires_at", s.ExpiresAt,
			"err", ErrSessionExpired,
		)
		m.cleanup(ctx)
		m.setState(StateNoSession)
		m.metrics.AuthOperation("restore", "expired")
		return nil
	}

	m.activate(opCtx, s)
	m.log.Info("session.restore.ok", "user_id", s.UserID, "expires_at", s.ExpiresAt)
	m.metrics.AuthOperation("restore", "ok")
	return nil
}

// Login authenticates, persists the new session and requests the realtime
// connection. On failure the previous state is left untouched.
func (m *Manager) Login(ctx context.Context, email, password string) (Session, error) {
	opCtx, release, err := m.acquire(ctx)
	if err != nil {
		return Session{}, err
	}
	defer release()

	res, err := m.auth.Login(opCtx, strings.TrimSpace(email), password)
	if err != nil {
		return Session{}, m.authFailure(opCtx, "login", err)
	}
	return m.establish(opCtx, "login", res)
}

// Register creates an account, then behaves like Login. The server's message
// is returned alongside the session.
func (m *Manager) Register(ctx context.Context, reg Registration) (RegisterResult, error) {
	opCtx, release, err := m.acquire(ctx)
	if err != nil {
		return RegisterResult{}, err
	}
	defer release()

	res, err := m.auth.Signup(opCtx, authapi.SignupRequest{
		Name:          strings.TrimSpace(reg.Name),
		Email:         strings.TrimSpace(reg.Email),
		Password:      reg.Password,
		BoatLicenseID: reg.Profile.BoatLicenseID,
		Experience:    reg.Profile.Experience,
		Port:          reg.Profile.Port,
	})
	if err != nil {
		return RegisterResult{}, m.authFailure(opCtx, "register", err)
	}

	s, err := m.establish(opCtx, "register", res)
	if err != nil {
		return RegisterResult{}, err
	}
	return RegisterResult{Session: s, Message: res.Message}, nil
}

// Logout ends the session. The operation in flight, if any, is cancelled
// first. The remote call is best effort and bounded by LogoutTimeout; local
// cleanup always runs and the manager always ends in StateNoSession. The
// returned error reports a failed storage clear only.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	if m.opCancel != nil {
		m.opCancel()
	}
	m.mu.Unlock()

	// Waits for the cancelled operation to unwind; never gives up, so a
	// cancelled caller still gets local cleanup.
	_, release, _ := m.acquire(context.WithoutCancel(ctx))
	defer release()

	cur, ok := m.Current()
	if ok {
		rctx, cancel := context.WithTimeout(ctx, m.cfg.LogoutTimeout)
		err := m.auth.Logout(rctx, cur.Token)
		cancel()
		if err != nil {
			m.log.Warn("session.logout.remote_fail", "user_id", cur.UserID, "err", err)
		}
	}

	err := m.cleanup(ctx)
	m.setState(StateNoSession)
	m.log.Info("session.logout", "user_id", cur.UserID, "had_session", ok)
	if err != nil {
		m.metrics.AuthOperation("logout", "storage_error")
		return fmt.Errorf("logout: %w", err)
	}
	m.metrics.AuthOperation("logout", "ok")
	return nil
}

// ForgotPassword is not offered by the backend.
func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	return m.recoveryUnavailable("forgot_password")
}

// VerifyOTP is not offered by the backend.
func (m *Manager) VerifyOTP(ctx context.Context, email, code string) error {
	return m.recoveryUnavailable("verify_otp")
}

// ResetPassword is not offered by the backend.
func (m *Manager) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	return m.recoveryUnavailable("reset_password")
}

func (m *Manager) recoveryUnavailable(op string) error {
	m.log.Debug("session.recovery.unavailable", "op", op)
	m.metrics.AuthOperation(op, "unavailable")
	return fmt.Errorf("%s: %w", op, ErrRecoveryUnavailable)
}

// establish persists and activates a freshly authenticated session.
func (m *Manager) establish(ctx context.Context, op string, res authapi.Result) (Session, error) {
	// Cancelled by Logout while the remote call was in flight.
	if err := ctx.Err(); err != nil {
		m.log.Info("session."+op+".canceled", "user_id", res.User.ID)
		m.metrics.AuthOperation(op, "canceled")
		return Session{}, err
	}

	s := fromResult(res, m.now(), m.cfg.TTL)
	rec := s.record()
	if err := rec.Validate(); err != nil {
		m.log.Warn("session."+op+".incomplete", "user_id", s.UserID, "err", err)
		m.metrics.AuthOperation(op, "network_error")
		return Session{}, &AuthError{Op: op, Kind: ErrNetwork, Reason: "network error", Err: err}
	}
	if err := m.store.Save(ctx, rec); err != nil {
		m.log.Error("session."+op+".save_fail", "user_id", s.UserID, "err", err)
		m.metrics.AuthOperation(op, "storage_error")
		return Session{}, fmt.Errorf("%s: save session: %w", op, err)
	}

	m.activate(ctx, s)
	m.log.Info("session."+op+".ok", "user_id", s.UserID, "privileged", s.IsPrivileged)
	m.metrics.AuthOperation(op, "ok")
	return s, nil
}

// activate installs s as the current session and requests the realtime
// connection for it. Switching identity drops the previous connection first.
func (m *Manager) activate(ctx context.Context, s Session) {
	m.mu.Lock()
	prev := m.current
	m.current = &s
	m.state = StateActive
	m.mu.Unlock()

	if prev != nil && prev.UserID != s.UserID {
		if err := m.rt.Disconnect(ctx); err != nil {
			m.log.Warn("session.realtime.disconnect_fail", "user_id", prev.UserID, "err", err)
		}
	}
	if err := m.rt.Connect(ctx, s.UserID, s.IsPrivileged); err != nil {
		m.log.Warn("session.realtime.connect_fail", "user_id", s.UserID, "err", err)
	}
}

// forget drops the in-memory session, and its realtime connection if there
// was one, without touching storage.
func (m *Manager) forget(ctx context.Context) {
	m.mu.Lock()
	prev := m.current
	m.current = nil
	m.mu.Unlock()

	if prev == nil {
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.CleanupTimeout)
	defer cancel()
	if err := m.rt.Disconnect(cctx); err != nil {
		m.log.Warn("session.realtime.disconnect_fail", "user_id", prev.UserID, "err", err)
	}
}

// cleanup tears down the realtime connection and clears storage. It runs
// detached from ctx's cancellation, bounded by CleanupTimeout.
func (m *Manager) cleanup(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.CleanupTimeout)
	defer cancel()

	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	if err := m.rt.Disconnect(cctx); err != nil {
		m.log.Warn("session.realtime.disconnect_fail", "err", err)
	}
	if err := m.store.Clear(cctx); err != nil {
		m.log.Error("session.clear.fail", "err", err)
		return err
	}
	return nil
}

func (m *Manager) authFailure(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		m.metrics.AuthOperation(op, "canceled")
		return ctxErr
	}

	var rej *authapi.RejectedError
	if errors.As(err, &rej) {
		m.log.Info("session."+op+".rejected", "status", rej.Status, "reason", rej.Message)
		m.metrics.AuthOperation(op, "auth_failed")
		return &AuthError{Op: op, Kind: ErrAuthFailed, Reason: rej.Message, Err: err}
	}

	m.log.Warn("session."+op+".network_fail", "err", err)
	m.metrics.AuthOperation(op, "network_error")
	return &AuthError{Op: op, Kind: ErrNetwork, Reason: "network error", Err: err}
}

// acquire takes the operation slot and returns a context that Logout can
// cancel. release must be called exactly once.
func (m *Manager) acquire(ctx context.Context) (context.Context, func(), error) {
	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}

	opCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.opCancel = cancel
	m.mu.Unlock()

	release := func() {
		m.mu.Lock()
		m.opCancel = nil
		m.mu.Unlock()
		cancel()
		<-m.sem
	}
	return opCtx, release, nil
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
