package refresh_test

import (
	"context"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/coursedeck/authgate/backend"
	errs "github.com/coursedeck/authgate/internal/errors"
	"github.com/coursedeck/authgate/refresh"
	"github.com/coursedeck/authgate/sessions"
	"github.com/coursedeck/authgate/sessions/sessionfakes"
	"github.com/coursedeck/authgate/token"
)

func newPoller(store sessions.Store, refresher refresh.TokenRefresher) *refresh.Poller {
	tokens := token.NewCodec(testSecret, zerolog.Nop())
	coord := refresh.NewCoordinator(store, refresher, tokens, 120*time.Second, 7*24*time.Hour, zerolog.Nop())
	return refresh.NewPoller(store, coord, tokens, 30*time.Second, zerolog.Nop())
}

func TestPoller_Poll(t *testing.T) {
	fixedNow(t)

	t.Run("no session marks logged out", func(t *testing.T) {
		poller := newPoller(sessionfakes.NewFakeStore(nil), &fakeRefresher{})
		poller.Poll(context.Background())

		role, loggedIn := poller.Snapshot()
		require.False(t, loggedIn)
		require.Empty(t, role)
	})

	t.Run("live token updates current role", func(t *testing.T) {
		rec := priorRecord(t)
		rec.AccessToken = signToken(t, jwtlib.MapClaims{"sub": "user-1", "role": "learner", "exp": testNow.Add(time.Hour).Unix()})
		rec.Role = "learner"
		poller := newPoller(sessionfakes.NewFakeStore(rec), &fakeRefresher{})
		poller.Poll(context.Background())

		role, loggedIn := poller.Snapshot()
		require.True(t, loggedIn)
		require.Equal(t, "learner", role)
	})

	t.Run("expired token refreshes and stays logged in", func(t *testing.T) {
		newAccess := signToken(t, jwtlib.MapClaims{"sub": "user-1", "exp": testNow.Add(time.Hour).Unix()})
		refresher := &fakeRefresher{pair: &backend.TokenPair{AccessToken: newAccess, RefreshToken: "R2"}}
		store := sessionfakes.NewFakeStore(priorRecord(t))
		poller := newPoller(store, refresher)
		poller.Poll(context.Background())

		role, loggedIn := poller.Snapshot()
		require.True(t, loggedIn)
		require.Equal(t, "admin", role)
		require.Equal(t, newAccess, store.Get().AccessToken)
	})

	t.Run("expired token with failing refresh clears the session", func(t *testing.T) {
		store := sessionfakes.NewFakeStore(priorRecord(t))
		poller := newPoller(store, &fakeRefresher{err: errs.ErrInternal})
		poller.Poll(context.Background())

		_, loggedIn := poller.Snapshot()
		require.False(t, loggedIn)
		require.Nil(t, store.Get())
	})

	t.Run("proactive refresh failure is non-fatal", func(t *testing.T) {
		rec := priorRecord(t)
		rec.AccessToken = signToken(t, jwtlib.MapClaims{"sub": "user-1", "exp": testNow.Add(60 * time.Second).Unix()})
		store := sessionfakes.NewFakeStore(rec)
		poller := newPoller(store, &fakeRefresher{err: errs.ErrInternal})
		poller.Poll(context.Background())

		role, loggedIn := poller.Snapshot()
		require.True(t, loggedIn)
		require.Equal(t, "admin", role)
		require.NotNil(t, store.Get())
	})
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	fixedNow(t)

	rec := priorRecord(t)
	rec.AccessToken = signToken(t, jwtlib.MapClaims{"sub": "user-1", "exp": testNow.Add(time.Hour).Unix()})
	store := sessionfakes.NewFakeStore(rec)
	tokens := token.NewCodec(testSecret, zerolog.Nop())
	coord := refresh.NewCoordinator(store, &fakeRefresher{}, tokens, 120*time.Second, 7*24*time.Hour, zerolog.Nop())
	poller := refresh.NewPoller(store, coord, tokens, time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, loggedIn := poller.Snapshot()
		return loggedIn
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancellation")
	}
}
