package domain

import "time"

// Session is a server-side login record. One session maps conceptually to one
// live refresh token; the session row is the source of truth for validity.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserAgent string    `json:"userAgent,omitempty"`
	ExpiresAt time.Time `json:"expiredAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Valid reports whether the session is still usable at the given instant.
// A session is valid iff now < ExpiresAt.
func (s Session) Valid(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}
