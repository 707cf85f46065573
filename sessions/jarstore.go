package sessions

import (
	"encoding/json"
	"net/http"
	"net/url"
)

// JarStore is the client-side variant: the session cookie lives in an
// http.CookieJar bound to the gateway origin, the way a browser-held cookie
// does. A long-lived client process shares the jar with its http.Client so
// outbound requests carry the session automatically, and the poller reads
// and rotates it in place.
type JarStore struct {
	cookies *CookieStore
	jar     http.CookieJar
	site    *url.URL
}

var _ Store = (*JarStore)(nil)

func NewJarStore(cookies *CookieStore, jar http.CookieJar, site *url.URL) *JarStore {
	return &JarStore{cookies: cookies, jar: jar, site: site}
}

func (s *JarStore) Get() *Record {
	for _, cookie := range s.jar.Cookies(s.site) {
		if cookie.Name == s.cookies.name && cookie.Value != "" {
			return s.cookies.decode(cookie.Value)
		}
	}
	return nil
}

func (s *JarStore) Set(rec *Record) error {
	blob, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	cookie := s.cookies.newCookie(s.cookies.codec.Seal(string(blob)), s.cookies.maxAge)
	s.jar.SetCookies(s.site, []*http.Cookie{cookie})
	return nil
}

func (s *JarStore) Clear() {
	expired := []*http.Cookie{s.cookies.newCookie("", -1)}
	for _, name := range legacyCookies {
		expired = append(expired, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
	}
	s.jar.SetCookies(s.site, expired)
}

func (s *JarStore) AccessToken() string  { return accessToken(s.Get()) }
func (s *JarStore) RefreshToken() string { return refreshToken(s.Get()) }
func (s *JarStore) Role() string         { return role(s.Get()) }
