package sessions

import (
	"encoding/json"
	"net/http"
)

// legacyCookies are plain-text cookies written by the scheme that predates
// the obfuscated session cookie. Clear expires them so stale copies cannot
// linger after a logout.
var legacyCookies = []string{"token", "refreshToken", "role"}

// Reader is the read-only session surface collaborators consume.
type Reader interface {
	Get() *Record
	AccessToken() string
	RefreshToken() string
	Role() string
}

// Store adds the write side used by login, logout, and refresh.
type Store interface {
	Reader
	Set(rec *Record) error
	Clear()
}

// CookieStore reads and writes the obfuscated session cookie. It is the
// shared mechanics behind both store variants; it holds no request state
// itself.
type CookieStore struct {
	name   string
	codec  Codec
	secure bool
	maxAge int
}

// NewCookieStore creates the cookie mechanics. secure should be true in
// production so the cookie never travels over plain HTTP.
func NewCookieStore(name string, codec Codec, secure bool, maxAgeSeconds int) *CookieStore {
	return &CookieStore{name: name, codec: codec, secure: secure, maxAge: maxAgeSeconds}
}

// Read decodes the session cookie from an incoming request. Absent, garbled,
// or partially-populated cookies all yield nil; it never panics or returns
// an error to the caller.
func (s *CookieStore) Read(r *http.Request) *Record {
	cookie, err := r.Cookie(s.name)
	if err != nil || cookie.Value == "" {
		return nil
	}
	return s.decode(cookie.Value)
}

func (s *CookieStore) decode(value string) *Record {
	plaintext, err := s.codec.Open(value)
	if err != nil {
		return nil
	}
	var rec Record
	// A wrong codec key opens to garbage; the JSON parse failing here is the
	// expected signal for that, treated as "no session".
	if err := json.Unmarshal([]byte(plaintext), &rec); err != nil {
		return nil
	}
	if !rec.Valid() {
		return nil
	}
	// The cookie's MaxAge normally ages the session out, but a replayed or
	// clock-skewed copy can outlive it; the stored ceiling is authoritative.
	if rec.Expired() {
		return nil
	}
	return &rec
}

// Write serializes and seals the record into a Set-Cookie header.
func (s *CookieStore) Write(w http.ResponseWriter, rec *Record) error {
	blob, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	http.SetCookie(w, s.newCookie(s.codec.Seal(string(blob)), s.maxAge))
	return nil
}

// Expire removes the session cookie and every legacy cookie from the prior
// unencrypted scheme.
func (s *CookieStore) Expire(w http.ResponseWriter) {
	http.SetCookie(w, s.newCookie("", -1))
	for _, name := range legacyCookies {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
	}
}

func (s *CookieStore) newCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     s.name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
		// Deliberately not HttpOnly: client-side script reads the record to
		// attach bearer tokens to its own outbound calls.
		HttpOnly: false,
	}
}

// RequestStore is the server-side variant: a CookieStore bound to one
// request/response pair, read from the inbound cookie and written through
// Set-Cookie on the outbound response.
type RequestStore struct {
	cookies *CookieStore
	w       http.ResponseWriter
	r       *http.Request

	// cached holds a record written during this request so a Get after Set
	// observes the new state before the response cookie round-trips.
	cached  *Record
	cleared bool
}

var _ Store = (*RequestStore)(nil)

func NewRequestStore(cookies *CookieStore, w http.ResponseWriter, r *http.Request) *RequestStore {
	return &RequestStore{cookies: cookies, w: w, r: r}
}

func (s *RequestStore) Get() *Record {
	if s.cleared {
		return nil
	}
	if s.cached != nil {
		return s.cached
	}
	return s.cookies.Read(s.r)
}

func (s *RequestStore) Set(rec *Record) error {
	if err := s.cookies.Write(s.w, rec); err != nil {
		return err
	}
	s.cached = rec
	s.cleared = false
	return nil
}

func (s *RequestStore) Clear() {
	s.cookies.Expire(s.w)
	s.cached = nil
	s.cleared = true
}

func (s *RequestStore) AccessToken() string  { return accessToken(s.Get()) }
func (s *RequestStore) RefreshToken() string { return refreshToken(s.Get()) }
func (s *RequestStore) Role() string         { return role(s.Get()) }

func accessToken(rec *Record) string {
	if rec == nil {
		return ""
	}
	return rec.AccessToken
}

func refreshToken(rec *Record) string {
	if rec == nil {
		return ""
	}
	return rec.RefreshToken
}

func role(rec *Record) string {
	if rec == nil {
		return ""
	}
	return rec.Role
}
