// Package client is the collaborator-facing SDK: it keeps a session cookie
// the way a browser would, attaches bearer tokens to outbound calls, and
// runs the keep-alive poller so long-lived processes stay authenticated.
package client

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/coursedeck/authgate/backend"
	errs "github.com/coursedeck/authgate/internal/errors"
	"github.com/coursedeck/authgate/refresh"
	"github.com/coursedeck/authgate/sessions"
	"github.com/coursedeck/authgate/token"
)

// Options configures the client. Zero values fall back to the documented
// defaults.
type Options struct {
	CookieName    string // default "auth.session"
	EncryptionKey string // session codec key; required
	JWTSecret     string // optional; "" degrades token checks to expiry-only
	Logger        zerolog.Logger
}

type Client struct {
	site   *url.URL
	http   *http.Client
	store  *sessions.JarStore
	api    *backend.Client
	tokens *token.Codec
	coord  *refresh.Coordinator
	poller *refresh.Poller
	log    zerolog.Logger
}

// New builds a client against the backend at baseURL. The session lives in
// an in-process cookie jar scoped to that origin.
func New(baseURL string, opts Options) (*Client, error) {
	site, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "client: parse base URL")
	}
	if opts.CookieName == "" {
		opts.CookieName = "auth.session"
	}
	if opts.EncryptionKey == "" {
		return nil, errors.New("client: encryption key is required")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	cookies := sessions.NewCookieStore(opts.CookieName, sessions.NewXORCodec(opts.EncryptionKey), site.Scheme == "https", 7*24*3600)
	store := sessions.NewJarStore(cookies, jar, site)
	tokens := token.NewCodec(opts.JWTSecret, opts.Logger)

	// Auth calls bypass the bearer transport so a refresh can never trigger
	// another refresh.
	api := backend.NewClient(baseURL, &http.Client{Jar: jar}, opts.Logger)
	coord := refresh.NewCoordinator(store, api, tokens, 120*time.Second, 7*24*time.Hour, opts.Logger)
	poller := refresh.NewPoller(store, coord, tokens, 30*time.Second, opts.Logger)

	return &Client{
		site:   site,
		http:   &http.Client{Jar: jar, Transport: &backend.BearerTransport{Source: store}},
		store:  store,
		api:    api,
		tokens: tokens,
		coord:  coord,
		poller: poller,
		log:    opts.Logger,
	}, nil
}

// Login authenticates against the backend and seeds the session. The role is
// derived from the freshly minted token's claims.
func (c *Client) Login(ctx context.Context, email, password string) error {
	pair, err := c.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	role := c.tokens.Role(pair.AccessToken)
	if role == "" {
		return errs.ErrRoleMismatch
	}

	payload, _ := c.tokens.Decode(pair.AccessToken)
	userName := ""
	if payload != nil {
		if name, ok := payload.Extra["name"].(string); ok {
			userName = name
		}
	}
	rec := &sessions.Record{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Role:         strings.ToLower(role),
		UserID:       c.tokens.UserID(pair.AccessToken),
		UserName:     userName,
		UserEmail:    email,
		ExpiresAt:    sessions.NowTimeFunc().Add(7 * 24 * time.Hour).Unix(),
	}
	return c.store.Set(rec)
}

// Logout tells the backend best-effort, then unconditionally drops the local
// session.
func (c *Client) Logout(ctx context.Context) {
	if rec := c.store.Get(); rec != nil {
		if err := c.api.Logout(ctx, rec.AccessToken); err != nil {
			c.log.Warn().Err(err).Msg("backend logout failed; clearing local session anyway")
		}
	}
	c.store.Clear()
}

// Do issues an authenticated request: the current access token rides along
// as a bearer header when one is present.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.http.Do(req)
}

// StartPolling launches the keep-alive poller until ctx is cancelled.
func (c *Client) StartPolling(ctx context.Context) {
	go c.poller.Run(ctx)
}

// CurrentRole reports the poller's view of the caller's role.
func (c *Client) CurrentRole() (string, bool) {
	return c.poller.Snapshot()
}

// Session exposes the read side of the session store.
func (c *Client) Session() sessions.Reader {
	return c.store
}
