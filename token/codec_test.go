package token_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	errs "github.com/coursedeck/authgate/internal/errors"
	"github.com/coursedeck/authgate/token"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, secret string, claims jwtlib.MapClaims) string {
	t.Helper()
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func fixedNow(t *testing.T, now time.Time) {
	t.Helper()
	token.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { token.NowTimeFunc = time.Now })
}

func TestCodec_Decode(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fixedNow(t, now)
	codec := token.NewCodec(testSecret, zerolog.Nop())

	t.Run("extracts standard claims", func(t *testing.T) {
		raw := signToken(t, testSecret, jwtlib.MapClaims{
			"sub":  "user-1",
			"role": "Admin",
			"iat":  now.Unix(),
			"exp":  now.Add(time.Hour).Unix(),
			"name": "John Doe",
		})
		payload, err := codec.Decode(raw)
		require.NoError(t, err)
		require.Equal(t, "user-1", payload.Sub)
		require.Equal(t, "Admin", payload.Role)
		require.Equal(t, now.Add(time.Hour).Unix(), payload.Exp)
		require.Equal(t, "John Doe", payload.Extra["name"])
	})

	t.Run("role from roles array", func(t *testing.T) {
		raw := signToken(t, testSecret, jwtlib.MapClaims{
			"sub":   "user-2",
			"roles": []string{"learner", "reviewer"},
			"exp":   now.Add(time.Hour).Unix(),
		})
		payload, err := codec.Decode(raw)
		require.NoError(t, err)
		require.Equal(t, "learner", payload.Role)
	})

	t.Run("malformed token fails closed", func(t *testing.T) {
		for _, raw := range []string{"", "not-a-jwt", "a.b", "a.b.c.d"} {
			payload, err := codec.Decode(raw)
			require.Error(t, err)
			require.Nil(t, payload)
		}
	})
}

func TestCodec_Validate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fixedNow(t, now)

	validClaims := jwtlib.MapClaims{
		"sub":  "user-1",
		"role": "admin",
		"exp":  now.Add(time.Hour).Unix(),
	}
	expiredClaims := jwtlib.MapClaims{
		"sub":  "user-1",
		"role": "admin",
		"exp":  now.Add(-time.Minute).Unix(),
	}

	t.Run("verified when secret matches", func(t *testing.T) {
		codec := token.NewCodec(testSecret, zerolog.Nop())
		payload, err := codec.Validate(signToken(t, testSecret, validClaims))
		require.NoError(t, err)
		require.Equal(t, "admin", payload.Role)
	})

	t.Run("wrong secret degrades to expiry-only", func(t *testing.T) {
		codec := token.NewCodec("a-different-secret", zerolog.Nop())
		payload, err := codec.Validate(signToken(t, testSecret, validClaims))
		require.NoError(t, err)
		require.Equal(t, "user-1", payload.Sub)
	})

	t.Run("no secret degrades to expiry-only", func(t *testing.T) {
		codec := token.NewCodec("", zerolog.Nop())
		payload, err := codec.Validate(signToken(t, testSecret, validClaims))
		require.NoError(t, err)
		require.Equal(t, "user-1", payload.Sub)
	})

	t.Run("verified expiry follows the injected clock", func(t *testing.T) {
		// exp sits an hour past the pinned clock but years behind the wall
		// clock; verification must consult the injected clock, not time.Now.
		codec := token.NewCodec(testSecret, zerolog.Nop())
		raw := signToken(t, testSecret, validClaims)
		_, err := codec.Validate(raw)
		require.NoError(t, err)

		token.NowTimeFunc = func() time.Time { return now.Add(2 * time.Hour) }
		defer func() { token.NowTimeFunc = func() time.Time { return now } }()
		payload, err := codec.Validate(raw)
		require.ErrorIs(t, err, errs.ErrTokenExpired)
		require.Nil(t, payload)
	})

	t.Run("expired rejected regardless of signature validity", func(t *testing.T) {
		raw := signToken(t, testSecret, expiredClaims)
		for _, secret := range []string{testSecret, "a-different-secret", ""} {
			codec := token.NewCodec(secret, zerolog.Nop())
			payload, err := codec.Validate(raw)
			require.ErrorIs(t, err, errs.ErrTokenExpired)
			require.Nil(t, payload)
		}
	})

	t.Run("garbage rejected in degraded path", func(t *testing.T) {
		codec := token.NewCodec("", zerolog.Nop())
		payload, err := codec.Validate("garbage")
		require.Error(t, err)
		require.Nil(t, payload)
	})
}

func TestCodec_IsExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fixedNow(t, now)
	codec := token.NewCodec(testSecret, zerolog.Nop())

	t.Run("future exp", func(t *testing.T) {
		raw := signToken(t, testSecret, jwtlib.MapClaims{"exp": now.Add(time.Minute).Unix()})
		require.False(t, codec.IsExpired(raw))
	})

	t.Run("past exp", func(t *testing.T) {
		raw := signToken(t, testSecret, jwtlib.MapClaims{"exp": now.Add(-time.Minute).Unix()})
		require.True(t, codec.IsExpired(raw))
	})

	t.Run("missing exp counts as expired", func(t *testing.T) {
		raw := signToken(t, testSecret, jwtlib.MapClaims{"sub": "user-1"})
		require.True(t, codec.IsExpired(raw))
	})

	t.Run("decode failure counts as expired", func(t *testing.T) {
		require.True(t, codec.IsExpired("not-a-jwt"))
	})
}

func TestCodec_Projections(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fixedNow(t, now)
	codec := token.NewCodec(testSecret, zerolog.Nop())

	raw := signToken(t, testSecret, jwtlib.MapClaims{
		"sub":  "user-9",
		"role": "learner",
		"exp":  now.Add(time.Hour).Unix(),
	})
	require.Equal(t, "learner", codec.Role(raw))
	require.Equal(t, "user-9", codec.UserID(raw))
	require.Empty(t, codec.Role("junk"))
	require.Empty(t, codec.UserID("junk"))
}
