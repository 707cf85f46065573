package config

import "time"

type SessionConfig interface {
	GetSessionCookieName() string
	GetSessionMaxAge() time.Duration
	GetRefreshThreshold() time.Duration
	GetPollInterval() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetSessionCookieName() string {
	return "auth.session"
}

// GetSessionMaxAge is the application-level session ceiling, independent of
// the access token's own expiry.
func (Session) GetSessionMaxAge() time.Duration {
	return 7 * 24 * time.Hour
}

// GetRefreshThreshold is how close to access-token expiry a proactive
// refresh becomes worthwhile.
func (Session) GetRefreshThreshold() time.Duration {
	return 120 * time.Second
}

func (Session) GetPollInterval() time.Duration {
	return 30 * time.Second
}
