// Package backend is the HTTP client for the course platform's REST API.
// The gateway only uses its auth endpoints; everything else the backend
// serves is reached by collaborators through the bearer transport.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	errs "github.com/coursedeck/authgate/internal/errors"
)

const (
	loginPath   = "/api/auth/login"
	refreshPath = "/api/auth/refresh"
	logoutPath  = "/api/auth/logout"
)

// TokenPair is the credential pair the backend mints. RefreshToken may be
// empty: rotation is opportunistic on the backend side.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// envelope is the backend's uniform response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a backend client. httpClient may be nil, in which case
// http.DefaultClient is used. The client never wraps itself in the bearer
// transport: auth endpoints must not trigger recursive refreshes.
func NewClient(baseURL string, httpClient *http.Client, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient, log: log}
}

// Login exchanges credentials for a token pair. A 401 maps to
// errs.ErrInvalidCredentials so callers can distinguish bad credentials from
// transport trouble.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	body := map[string]string{"email": email, "password": password}
	return c.tokenRequest(ctx, loginPath, body, "", errs.ErrInvalidCredentials)
}

// Refresh exchanges a refresh token for a new token pair. A 401 maps to
// errs.ErrRefreshRejected: the refresh token itself was refused and the
// session is unrecoverable.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	body := map[string]string{"refreshToken": refreshToken}
	return c.tokenRequest(ctx, refreshPath, body, "", errs.ErrRefreshRejected)
}

// Logout notifies the backend that the session's tokens should be retired.
// Callers treat failures as best-effort; local teardown happens regardless.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	res, err := c.post(ctx, logoutPath, map[string]string{}, accessToken)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return errors.Errorf("logout: backend returned %d", res.StatusCode)
	}
	return nil
}

func (c *Client) tokenRequest(ctx context.Context, path string, body any, bearer string, unauthorizedErr error) (*TokenPair, error) {
	res, err := c.post(ctx, path, body, bearer)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, res.Body)
		return nil, unauthorizedErr
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		io.Copy(io.Discard, res.Body)
		return nil, errors.Errorf("%s: backend returned %d", path, res.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return nil, errors.Wrapf(err, "%s: decode response", path)
	}
	if !env.Success {
		return nil, errors.Errorf("%s: backend reported failure: %s", path, env.Message)
	}

	var pair TokenPair
	if err := json.Unmarshal(env.Data, &pair); err != nil {
		return nil, errors.Wrapf(err, "%s: decode data", path)
	}
	if pair.AccessToken == "" {
		return nil, errors.Errorf("%s: response missing access token", path)
	}
	return &pair, nil
}

func (c *Client) post(ctx context.Context, path string, body any, bearer string) (*http.Response, error) {
	blob, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: request failed", path)
	}
	return res, nil
}
