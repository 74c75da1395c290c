// Package app wires the Ocean Sentinel client core: config, logging, the
// credential store, the auth client, the session and realtime managers, the
// alert dispatcher and the loopback control API.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/alert"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/auth/api"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/auth/session"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/credential"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/location"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/realtime"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/telemetry"
)

// Option overrides a collaborator, mostly for tests.
type Option func(*options)

type options struct {
	httpClient *http.Client
	dialer     realtime.Dialer
	store      credential.Store
	location   location.Source
	noConnect  bool
}

// WithHTTPClient sets the client used for the auth API.
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.httpClient = c } }

// WithDialer sets the realtime dialer.
func WithDialer(d realtime.Dialer) Option { return func(o *options) { o.dialer = d } }

// WithStore bypasses credential.Open and uses s.
func WithStore(s credential.Store) Option { return func(o *options) { o.store = s } }

// WithLocation replaces the location source built from Config.Location.
func WithLocation(src location.Source) Option { return func(o *options) { o.location = src } }

// WithoutConnect keeps sessions from opening the realtime connection, for
// commands that only read local state.
func WithoutConnect() Option { return func(o *options) { o.noConnect = true } }

// passiveRealtime hands the session manager a connection it can close but
// never opens.
type passiveRealtime struct{ *realtime.Manager }

func (passiveRealtime) Connect(context.Context, string, bool) error { return nil }

// App owns every component of the client core. Components are created once
// in New and live until Close.
type App struct {
	cfg Config
	log *slog.Logger

	registry *prometheus.Registry
	metrics  *telemetry.Metrics

	creds    credential.Opened
	conn     *realtime.Manager
	sessions *session.Manager
	alerts   *alert.Dispatcher

	mu         sync.Mutex
	started    bool
	loopCancel context.CancelFunc
	loopDone   chan struct{}
}

// New constructs a fully wired App. Nothing runs until Start.
func New(ctx context.Context, cfg Config, log *slog.Logger, opts ...Option) (*App, error) {
	if log == nil {
		log = NewLogger(nil, cfg.LogLevel, cfg.LogFormat)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := telemetry.New(registry, realtime.StateNames())
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	creds := credential.Opened{Store: o.store, Close: func() error { return nil }}
	if o.store == nil {
		creds, err = credential.Open(ctx, cfg.Credential)
		if err != nil {
			return nil, fmt.Errorf("credential store: %w", err)
		}
	}
	fail := func(err error) (*App, error) {
		_ = creds.Close()
		return nil, err
	}

	client, err := authapi.NewClient(cfg.API, o.httpClient, log)
	if err != nil {
		return fail(err)
	}

	rtOpts := []realtime.Option{realtime.WithMetrics(metrics)}
	if o.dialer != nil {
		rtOpts = append(rtOpts, realtime.WithDialer(o.dialer))
	}
	conn, err := realtime.NewManager(cfg.Realtime, log, rtOpts...)
	if err != nil {
		return fail(err)
	}

	var rt session.Realtime = conn
	if o.noConnect {
		rt = passiveRealtime{conn}
	}
	sessions, err := session.NewManager(cfg.Session, client, creds.Store, rt, log, session.WithMetrics(metrics))
	if err != nil {
		return fail(err)
	}

	loc := o.location
	if loc == nil {
		loc, err = location.FromString(cfg.Location)
		if err != nil {
			return fail(fmt.Errorf("%w: %v", ErrConfig, err))
		}
	}

	log.Info("app.init",
		"credential_backend", cfg.Credential.Backend,
		"api_base_url", cfg.API.BaseURL,
		"ws_url", cfg.Realtime.URL,
		"reconnect", cfg.Realtime.Reconnect,
		"connect", !o.noConnect,
	)

	return &App{
		cfg:      cfg,
		log:      log,
		registry: registry,
		metrics:  metrics,
		creds:    creds,
		conn:     conn,
		sessions: sessions,
		alerts:   alert.NewDispatcher(conn, loc, log, metrics),
	}, nil
}

// Sessions returns the session manager.
func (a *App) Sessions() *session.Manager { return a.sessions }

// Connection returns the realtime connection manager.
func (a *App) Connection() *realtime.Manager { return a.conn }

// Alerts returns the alert dispatcher.
func (a *App) Alerts() *alert.Dispatcher { return a.alerts }

// Start runs the realtime loop and restores the persisted session.
// It is safe to call more than once.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.loopCancel = cancel
	a.loopDone = make(chan struct{})
	a.started = true
	a.mu.Unlock()

	go func() {
		defer close(a.loopDone)
		if err := a.conn.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("ws.loop.fail", "err", err)
		}
	}()
	go a.drainInbound(loopCtx)

	return a.sessions.Restore(ctx)
}

// Close stops the realtime loop, which closes any open connection, and
// releases the credential store. The persisted session is left in place.
func (a *App) Close() error {
	a.mu.Lock()
	cancel, done := a.loopCancel, a.loopDone
	a.loopCancel = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return a.creds.Close()
}

// drainInbound consumes push events. Presentation is out of scope here, so
// events are only logged.
func (a *App) drainInbound(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-a.conn.Inbound():
			if !ok {
				return
			}
			a.log.Info("ws.inbound.event", "type", env.Type, "payload_bytes", len(env.Payload))
		}
	}
}

// Run starts the core, serves the control API until ctx is cancelled, then
// shuts everything down.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		_ = a.Close()
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.log.Error("app.close.fail", "err", err)
		}
	}()

	srv := &http.Server{
		Addr:              a.cfg.ControlAddr,
		Handler:           WithRequestLogging(a.Handler(), a.log),
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout,
	}

	a.log.Info("server.start", "addr", a.cfg.ControlAddr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.log.Info("server.stopped")
	return nil
}
