// Package refresh exchanges refresh tokens for new access tokens and keeps
// long-lived sessions alive. It owns the decision of when a proactive
// refresh is worthwhile; it never retries a failed exchange on its own.
package refresh

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/coursedeck/authgate/backend"
	errs "github.com/coursedeck/authgate/internal/errors"
	"github.com/coursedeck/authgate/sessions"
	"github.com/coursedeck/authgate/token"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// TokenRefresher exchanges a refresh token for a new pair.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*backend.TokenPair, error)
}

// Coordinator performs the refresh exchange and updates the session store.
// Concurrent triggers (poller tick racing a user-initiated refresh) collapse
// into one network call and one store write through the singleflight group.
type Coordinator struct {
	store     sessions.Store
	backend   TokenRefresher
	tokens    *token.Codec
	threshold time.Duration
	ceiling   time.Duration
	group     singleflight.Group
	log       zerolog.Logger
}

func NewCoordinator(store sessions.Store, refresher TokenRefresher, tokens *token.Codec, threshold, ceiling time.Duration, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		store:     store,
		backend:   refresher,
		tokens:    tokens,
		threshold: threshold,
		ceiling:   ceiling,
		log:       log,
	}
}

// ShouldRefresh reports whether the token is close enough to expiry to
// warrant a proactive refresh. Already-expired tokens return false: expiry
// handling owns that path. Undecodable input returns false rather than
// forcing a refresh on garbage.
func (c *Coordinator) ShouldRefresh(raw string) bool {
	payload, err := c.tokens.Decode(raw)
	if err != nil {
		return false
	}
	remaining := payload.ExpiresIn()
	return remaining > 0 && remaining < c.threshold
}

// Refresh exchanges the current session's refresh token for a new access
// token and replaces the stored record. Role, UserName, and UserEmail are
// carried over from the prior record; role is deliberately NOT re-derived
// from the new token, so a backend-side role change only lands at the next
// login. A rejected refresh token (401) tears the session down; transport
// errors leave it untouched for the next poll tick.
func (c *Coordinator) Refresh(ctx context.Context) (string, error) {
	result, err, _ := c.group.Do("refresh", func() (any, error) {
		return c.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *Coordinator) refresh(ctx context.Context) (string, error) {
	rec := c.store.Get()
	if rec == nil || rec.RefreshToken == "" {
		return "", errs.ErrNoSession
	}

	pair, err := c.backend.Refresh(ctx, rec.RefreshToken)
	if err != nil {
		if errs.Is(err, errs.ErrRefreshRejected) {
			// The refresh token itself was refused: the session is
			// unrecoverable and stale credentials must not linger.
			c.store.Clear()
			c.log.Warn().Msg("refresh token rejected; session cleared")
			return "", err
		}
		c.log.Error().Err(err).Msg("token refresh failed")
		return "", err
	}

	newRefreshToken := pair.RefreshToken
	if newRefreshToken == "" {
		// Rotation is opportunistic: reuse the prior token when the backend
		// does not mint one.
		newRefreshToken = rec.RefreshToken
	}

	userID := c.tokens.UserID(pair.AccessToken)
	if userID == "" {
		userID = rec.UserID
	}

	newRec := &sessions.Record{
		AccessToken:  pair.AccessToken,
		RefreshToken: newRefreshToken,
		Role:         rec.Role,
		UserID:       userID,
		UserName:     rec.UserName,
		UserEmail:    rec.UserEmail,
		ExpiresAt:    NowTimeFunc().Add(c.ceiling).Unix(),
	}
	if err := c.store.Set(newRec); err != nil {
		return "", errs.Wrapf(err, "store refreshed session")
	}
	return pair.AccessToken, nil
}
