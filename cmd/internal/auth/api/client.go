package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Client calls the remote auth API.
type Client struct {
	base    *url.URL
	http    *http.Client
	log     *slog.Logger
	maxBody int64
	ua      string
}

// NewClient constructs a Client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client, log *slog.Logger) (*Client, error) {
	base, err := cfg.baseURL()
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return &Client{base: base, http: httpClient, log: log, maxBody: cfg.MaxBodyBytes, ua: cfg.UserAgent}, nil
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (Result, error) {
	return c.authenticate(ctx, "login", "/auth/login", loginRequest{
		Email:    strings.TrimSpace(email),
		Password: password,
	})
}

// Signup registers a new account and returns its token.
func (c *Client) Signup(ctx context.Context, in SignupRequest) (Result, error) {
	return c.authenticate(ctx, "signup", "/auth/signup", signupRequest{
		Name:          strings.TrimSpace(in.Name),
		Email:         strings.TrimSpace(in.Email),
		Password:      in.Password,
		BoatLicenseID: strings.TrimSpace(in.BoatLicenseID),
		Experience:    strings.TrimSpace(in.Experience),
		Port:          strings.TrimSpace(in.Port),
	})
}

// Logout invalidates token on the server.
func (c *Client) Logout(ctx context.Context, token string) error {
	req, reqID, err := c.newRequest(ctx, "/auth/logout", nil)
	if err != nil {
		return &TransportError{Op: "logout", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: "logout", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxBody))

	c.log.Debug("authapi.logout", "request_id", reqID, "status", resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RejectedError{Op: "logout", Status: resp.StatusCode}
	}
	return nil
}

func (c *Client) authenticate(ctx context.Context, op, path string, body any) (Result, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return Result{}, fmt.Errorf("%s: marshal: %w", op, err)
	}

	req, reqID, err := c.newRequest(ctx, path, b)
	if err != nil {
		return Result{}, &TransportError{Op: op, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, &TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	var out authResponse
	if err := decodeBody(resp.Body, c.maxBody, &out); err != nil {
		c.log.Info("authapi.decode.fail", "op", op, "request_id", reqID, "status", resp.StatusCode, "err", err)
		return Result{}, &TransportError{Op: op, Status: resp.StatusCode, Err: err}
	}

	if !out.Success {
		c.log.Info("authapi.rejected", "op", op, "request_id", reqID, "status", resp.StatusCode)
		return Result{}, &RejectedError{Op: op, Status: resp.StatusCode, Message: strings.TrimSpace(out.Message)}
	}
	if out.Token == "" || out.User == nil || out.User.ID == "" {
		return Result{}, &TransportError{Op: op, Status: resp.StatusCode, Err: errors.New("success response without token or user id")}
	}
	if strings.TrimSpace(out.User.Name) == "" || strings.TrimSpace(out.User.Email) == "" {
		return Result{}, &TransportError{Op: op, Status: resp.StatusCode, Err: errors.New("success response without user name or email")}
	}

	c.log.Debug("authapi.ok", "op", op, "request_id", reqID, "status", resp.StatusCode, "user_id", out.User.ID)
	return Result{Token: out.Token, User: *out.User, Message: strings.TrimSpace(out.Message)}, nil
}

func (c *Client) newRequest(ctx context.Context, path string, body []byte) (*http.Request, string, error) {
	u := c.base.JoinPath(path)

	var r io.Reader = http.NoBody
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), r)
	if err != nil {
		return nil, "", err
	}

	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.ua != "" {
		req.Header.Set("User-Agent", c.ua)
	}
	return req, reqID, nil
}

func decodeBody(r io.Reader, maxBytes int64, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r, maxBytes))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// Ensure there is no extra data after the first JSON value.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}
