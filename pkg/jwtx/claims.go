package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants. Short-lived access tokens limit the blast
// radius of a leaked token; the refresh TTL matches the server-side session
// lifetime it is bound to.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// DefaultAudience is the audience claim stamped on both token kinds.
const DefaultAudience = "user"

// AccessClaims are the claims carried by an access token. The token is
// self-contained: handlers can authorize a request from UserID/SessionID
// without a store round-trip.
type AccessClaims struct {
	jwt.RegisteredClaims

	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

// RefreshClaims are the claims carried by a refresh token. Only the session
// id travels; the owning user is resolved from the session record.
type RefreshClaims struct {
	jwt.RegisteredClaims

	SessionID string `json:"sessionId"`
}

func newRegisteredClaims(issuer, audience string, ttl time.Duration, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}
