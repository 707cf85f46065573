package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/coursedeck/authgate/client"
)

const testSecret = "client-test-secret"

func mintToken(t *testing.T, role string, ttl time.Duration) string {
	t.Helper()
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub":  "user-1",
		"role": role,
		"name": "John Doe",
		"exp":  time.Now().Add(ttl).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return raw
}

// fakeAPI is a minimal course-platform backend.
type fakeAPI struct {
	t         *testing.T
	accessTTL time.Duration

	mu           sync.Mutex
	refreshCalls int
	lastBearer   string
}

func (f *fakeAPI) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

func (f *fakeAPI) bearer() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBearer
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]string{
				"accessToken":  mintToken(f.t, "Learner", f.accessTTL),
				"refreshToken": "R1",
			},
		})
	})
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.refreshCalls++
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]string{"accessToken": mintToken(f.t, "Learner", time.Hour)},
		})
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /api/courses", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.lastBearer = r.Header.Get("Authorization")
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func newClient(t *testing.T, api *fakeAPI) *client.Client {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	c, err := client.New(srv.URL, client.Options{
		EncryptionKey: "client-test-key",
		JWTSecret:     testSecret,
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Logout(context.Background()) })
	return c
}

func courseRequest(t *testing.T, c *client.Client, base string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, base+"/api/courses", nil)
	require.NoError(t, err)
	res, err := c.Do(req)
	require.NoError(t, err)
	res.Body.Close()
}

func TestClient_LoginAttachesBearer(t *testing.T) {
	api := &fakeAPI{t: t, accessTTL: time.Hour}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	c, err := client.New(srv.URL, client.Options{EncryptionKey: "k", JWTSecret: testSecret, Logger: zerolog.Nop()})
	require.NoError(t, err)

	// Anonymous call carries no Authorization header.
	courseRequest(t, c, srv.URL)
	require.Empty(t, api.bearer())

	require.NoError(t, c.Login(context.Background(), "user@example.com", "pw"))
	rec := c.Session().Get()
	require.NotNil(t, rec)
	require.Equal(t, "learner", rec.Role)
	require.Equal(t, "R1", rec.RefreshToken)

	courseRequest(t, c, srv.URL)
	require.Equal(t, "Bearer "+rec.AccessToken, api.bearer())

	c.Logout(context.Background())
	require.Nil(t, c.Session().Get())
	courseRequest(t, c, srv.URL)
	require.Empty(t, api.bearer())
}

func TestClient_PollerKeepsSessionAlive(t *testing.T) {
	// Access tokens land inside the proactive-refresh window immediately.
	api := &fakeAPI{t: t, accessTTL: 60 * time.Second}
	c := newClient(t, api)

	require.NoError(t, c.Login(context.Background(), "user@example.com", "pw"))
	before := c.Session().AccessToken()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.StartPolling(ctx)

	require.Eventually(t, func() bool {
		role, loggedIn := c.CurrentRole()
		return loggedIn && role == "learner" && c.Session().AccessToken() != before
	}, 2*time.Second, 10*time.Millisecond)
	require.GreaterOrEqual(t, api.refreshCount(), 1)
	// Rotation was opportunistic: the backend minted no refresh token, so
	// the prior one is carried forward.
	require.Equal(t, "R1", c.Session().RefreshToken())
}

func TestClient_RequiresEncryptionKey(t *testing.T) {
	_, err := client.New("http://localhost:1", client.Options{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "encryption key")
}
