package sessions

import "time"

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Record is the authenticated caller's state, persisted client-side in an
// obfuscated cookie. It is either entirely absent (logged out) or fully
// populated; a record is never mutated in place, only replaced by login or
// refresh.
type Record struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Role         string `json:"role"`
	UserID       string `json:"userId,omitempty"`
	UserName     string `json:"userName,omitempty"`
	UserEmail    string `json:"userEmail,omitempty"`

	// ExpiresAt is the application-level session ceiling in epoch seconds,
	// independent of the access token's own expiry. Set once at creation.
	ExpiresAt int64 `json:"expiresAt"`
}

// Valid reports whether the record carries the credentials a live session
// needs. Role is not required here: cookies minted before the role field was
// stored may lack it, and readers fall back to the token's own role claim.
func (r *Record) Valid() bool {
	return r != nil && r.AccessToken != "" && r.RefreshToken != ""
}

// Expired reports whether the session ceiling has passed.
func (r *Record) Expired() bool {
	return r == nil || NowTimeFunc().Unix() >= r.ExpiresAt
}
