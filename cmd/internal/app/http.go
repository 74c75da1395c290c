package app

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/alert"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/auth/session"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/location"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/realtime"
)

// Handler returns the control API router.
func (a *App) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	attempts := newAttemptLimiter(a.cfg.AuthAttemptLimit, a.cfg.AuthAttemptWindow)

	api := r.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/status", a.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/login", attempts.limit(a.handleLogin)).Methods(http.MethodPost)
	api.HandleFunc("/register", attempts.limit(a.handleRegister)).Methods(http.MethodPost)
	api.HandleFunc("/logout", a.handleLogout).Methods(http.MethodPost)
	api.HandleFunc("/sos", a.handleSOS).Methods(http.MethodPost)
	api.HandleFunc("/password/{step:forgot|verify|reset}", a.handleRecovery).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such route")
	})
	return r
}

type userView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

type sessionView struct {
	State     string     `json:"state"`
	User      *userView  `json:"user,omitempty"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type connectionView struct {
	State string `json:"state"`
}

// Status is the snapshot served by /v1/status and printed by the CLI.
type Status struct {
	Session    sessionView    `json:"session"`
	Connection connectionView `json:"connection"`
	Message    string         `json:"message,omitempty"`
}

func (a *App) Status() Status {
	out := Status{
		Session:    sessionView{State: a.sessions.State().String()},
		Connection: connectionView{State: a.conn.State().String()},
	}
	if s, ok := a.sessions.Current(); ok {
		out.Session.User = &userView{ID: s.UserID, Name: s.DisplayName, Email: s.Email, IsAdmin: s.IsPrivileged}
		out.Session.IssuedAt = &s.IssuedAt
		out.Session.ExpiresAt = &s.ExpiresAt
	}
	return out
}

func (a *App) handleReady(w http.ResponseWriter, _ *http.Request) {
	if a.sessions.State() != session.StateActive {
		http.Error(w, "no session", http.StatusServiceUnavailable)
		return
	}
	if a.conn.State() != realtime.StateOpen {
		http.Error(w, "connection not open", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready\n"))
}

func (a *App) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.Status())
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	if _, err := a.sessions.Login(r.Context(), req.Email, req.Password); err != nil {
		a.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.Status())
}

type registerRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	BoatLicenseID string `json:"boatLicenseId"`
	Experience    string `json:"experience"`
	Port          string `json:"port"`
}

func (a *App) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "name, email and password are required")
		return
	}

	res, err := a.sessions.Register(r.Context(), session.Registration{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Profile: session.Profile{
			BoatLicenseID: req.BoatLicenseID,
			Experience:    req.Experience,
			Port:          req.Port,
		},
	})
	if err != nil {
		a.writeSessionError(w, err)
		return
	}
	out := a.Status()
	out.Message = res.Message
	writeJSON(w, http.StatusCreated, out)
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Logout(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "session cleared but storage could not be wiped")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type recoveryRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

func (a *App) handleRecovery(w http.ResponseWriter, r *http.Request) {
	var req recoveryRequest
	if !readJSON(w, r, &req) {
		return
	}

	step := mux.Vars(r)["step"]
	switch {
	case strings.TrimSpace(req.Email) == "":
		writeError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	case step != "forgot" && req.OTP == "":
		writeError(w, http.StatusBadRequest, "invalid_request", "otp is required")
		return
	case step == "reset" && req.NewPassword == "":
		writeError(w, http.StatusBadRequest, "invalid_request", "newPassword is required")
		return
	}

	var err error
	switch step {
	case "forgot":
		err = a.sessions.ForgotPassword(r.Context(), req.Email)
	case "verify":
		err = a.sessions.VerifyOTP(r.Context(), req.Email, req.OTP)
	default:
		err = a.sessions.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword)
	}
	a.writeSessionError(w, err)
}

type sosRequest struct {
	Message   string   `json:"message"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type sosResponse struct {
	AlertID string    `json:"alert_id"`
	SentAt  time.Time `json:"sent_at"`
}

func (a *App) handleSOS(w http.ResponseWriter, r *http.Request) {
	var req sosRequest
	if !readJSON(w, r, &req) {
		return
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		writeError(w, http.StatusBadRequest, "invalid_request", "latitude and longitude go together")
		return
	}

	var (
		rec alert.Receipt
		err error
	)
	if req.Latitude != nil {
		rec, err = a.alerts.SendAlert(r.Context(), req.Message, &location.Point{Latitude: *req.Latitude, Longitude: *req.Longitude})
	} else {
		rec, err = a.alerts.SendCurrent(r.Context(), req.Message)
	}
	if err != nil {
		writeAlertError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sosResponse{AlertID: rec.AlertID, SentAt: rec.SentAt})
}

func (a *App) writeSessionError(w http.ResponseWriter, err error) {
	var ae *session.AuthError
	switch {
	case errors.As(err, &ae) && errors.Is(err, session.ErrAuthFailed):
		msg := ae.Reason
		if msg == "" {
			msg = "authentication failed"
		}
		writeError(w, http.StatusUnauthorized, "auth_failed", msg)
	case errors.Is(err, session.ErrNetwork):
		writeError(w, http.StatusBadGateway, "network_error", "auth server unreachable")
	case errors.Is(err, session.ErrRecoveryUnavailable):
		writeError(w, http.StatusNotImplemented, "recovery_unavailable", "password recovery is not available")
	default:
		a.log.Error("control.session.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func writeAlertError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, alert.ErrConnectionUnavailable):
		writeError(w, http.StatusServiceUnavailable, "connection_unavailable", err.Error())
	case errors.Is(err, alert.ErrLocationUnavailable):
		writeError(w, http.StatusUnprocessableEntity, "location_unavailable", err.Error())
	case errors.Is(err, alert.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "empty_message", err.Error())
	case errors.Is(err, alert.ErrMessageTooLong):
		writeError(w, http.StatusBadRequest, "message_too_long", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", "alert could not be sent")
	}
}
