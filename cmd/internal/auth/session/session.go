package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/auth/api"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/credential"
)

// State is the session state.
type State int

const (
	StateNoSession State = iota
	StateRestoring
	StateActive
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateNoSession:
		return "no_session"
	case StateRestoring:
		return "restoring"
	case StateActive:
		return "active"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Session is the authenticated identity. It is replaced as a whole, never
// updated field by field.
type Session struct {
	UserID       string
	DisplayName  string
	Email        string
	IsPrivileged bool
	Token        string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// Profile carries the boat-owner details collected at registration.
type Profile struct {
	BoatLicenseID string
	Experience    string
	Port          string
}

// Registration is the signup form.
type Registration struct {
	Name     string
	Email    string
	Password string
	Profile  Profile
}

// RegisterResult is a successful registration and the server's message.
type RegisterResult struct {
	Session Session
	Message string
}

func (s Session) record() credential.Record {
	return credential.Record{
		Token: s.Token,
		User: credential.User{
			ID:      s.UserID,
			Name:    s.DisplayName,
			Email:   s.Email,
			IsAdmin: s.IsPrivileged,
		},
		IssuedAt: s.IssuedAt,
	}
}

func fromRecord(r credential.Record, ttl time.Duration) Session {
	return Session{
		UserID:       r.User.ID,
		DisplayName:  r.User.Name,
		Email:        r.User.Email,
		IsPrivileged: r.User.IsAdmin,
		Token:        r.Token,
		IssuedAt:     r.IssuedAt,
		ExpiresAt:    expiresAt(r.Token, r.IssuedAt, ttl),
	}
}

func fromResult(res authapi.Result, now time.Time, ttl time.Duration) Session {
	// Storage keeps millisecond precision.
	now = now.UTC().Truncate(time.Millisecond)
	return Session{
		UserID:       res.User.ID,
		DisplayName:  res.User.Name,
		Email:        res.User.Email,
		IsPrivileged: res.User.IsAdmin,
		Token:        res.Token,
		IssuedAt:     now,
		ExpiresAt:    expiresAt(res.Token, now, ttl),
	}
}

// expiresAt applies the policy, shortened by a JWT exp claim when the token
// carries one. The claim is read without verification and can only shorten.
func expiresAt(token string, issuedAt time.Time, ttl time.Duration) time.Time {
	limit := issuedAt.Add(ttl)

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return limit
	}
	if exp := claims.ExpiresAt.Time; exp.Before(limit) {
		return exp
	}
	return limit
}
