package backend

import "net/http"

// TokenSource yields the bearer token to attach to an outbound request, or
// "" to omit the Authorization header entirely.
type TokenSource interface {
	AccessToken() string
}

// BearerTransport attaches the current session's access token to every
// authenticated outbound call. Collaborators wrap their http.Client with it;
// the auth endpoints themselves bypass it to avoid recursive refreshes.
type BearerTransport struct {
	Source TokenSource
	Base   http.RoundTripper
}

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if token := t.Source.AccessToken(); token != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
