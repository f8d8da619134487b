// Package jwtx implements the signed token codec used for access and
// refresh tokens. Both token kinds share one HS256 signing primitive and
// differ only in configuration (secret, TTL, payload shape), so the service
// holds two Codec instances rather than two implementations.
package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrExpired    = errors.New("jwtx: token expired")
	ErrIssuer     = errors.New("jwtx: issuer mismatch")
	ErrAudience   = errors.New("jwtx: audience mismatch")
)

// Codec signs and verifies compact HMAC-SHA256 tokens. The zero value is not
// usable; configure Secret, Issuer, Audience and TTL.
type Codec struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// SignAccess mints an access token binding a user to a session.
func (c *Codec) SignAccess(userID, sessionID string, now time.Time) (string, error) {
	claims := AccessClaims{
		RegisteredClaims: newRegisteredClaims(c.Issuer, c.Audience, c.TTL, now),
		UserID:           userID,
		SessionID:        sessionID,
	}
	return c.sign(claims)
}

// SignRefresh mints a refresh token carrying only the session id.
func (c *Codec) SignRefresh(sessionID string, now time.Time) (string, error) {
	claims := RefreshClaims{
		RegisteredClaims: newRegisteredClaims(c.Issuer, c.Audience, c.TTL, now),
		SessionID:        sessionID,
	}
	return c.sign(claims)
}

// VerifyAccess validates signature, expiry, issuer and audience, returning
// the decoded access claims.
func (c *Codec) VerifyAccess(token string) (AccessClaims, error) {
	var claims AccessClaims
	if err := c.verify(token, &claims); err != nil {
		return AccessClaims{}, err
	}
	return claims, nil
}

// VerifyRefresh validates signature, expiry, issuer and audience, returning
// the decoded refresh claims.
func (c *Codec) VerifyRefresh(token string) (RefreshClaims, error) {
	var claims RefreshClaims
	if err := c.verify(token, &claims); err != nil {
		return RefreshClaims{}, err
	}
	return claims, nil
}

func (c *Codec) sign(claims jwt.Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.Secret)
}

func (c *Codec) verify(token string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return c.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.Issuer),
		jwt.WithAudience(c.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return mapJWTError(err)
	}
	return nil
}

// mapJWTError collapses library errors into this package's sentinels so
// callers can switch on errors.Is without importing golang-jwt.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrIssuer
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrAudience
	default:
		return ErrMalformed
	}
}
