package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/copperlane/gatehouse/internal/auth/domain"
	"github.com/copperlane/gatehouse/internal/auth/mail"
	"github.com/copperlane/gatehouse/internal/auth/store"
	"github.com/copperlane/gatehouse/pkg/cryptox"
	"github.com/copperlane/gatehouse/pkg/idx"
	"github.com/copperlane/gatehouse/pkg/jwtx"
	"github.com/copperlane/gatehouse/pkg/slogx"
)

const (
	// EmailVerificationTTL bounds how long a registration confirmation
	// link stays usable.
	EmailVerificationTTL = 45 * time.Minute

	// PasswordResetTTL bounds how long a reset link stays usable.
	PasswordResetTTL = time.Hour

	// ResetRequestWindow and MaxResetRequests throttle forgot-password:
	// at most MaxResetRequests codes per user inside the window.
	ResetRequestWindow = 3 * time.Minute
	MaxResetRequests   = 2

	// SessionRenewalThreshold is the remaining-lifetime cutoff below which
	// a refresh call extends the session and rotates the refresh token.
	SessionRenewalThreshold = 24 * time.Hour

	// codeCreateAttempts bounds regeneration on a UNIQUE collision.
	// Collisions are astronomically rare; three tries is plenty.
	codeCreateAttempts = 3
)

// Metrics is the subset of the collector the service reports to.
type Metrics interface {
	RecordRegistration()
	RecordLogin()
	RecordLoginFailure()
	RecordRefreshRotation()
	RecordEmailSent(kind string)
}

// AuthService orchestrates the account lifecycle: registration, login,
// token refresh, logout, email verification, and password reset. Each call
// is a single logical unit of work over the stores; there is no internal
// parallelism or retry logic.
type AuthService struct {
	Store   store.Store
	Mailer  mail.Mailer
	Metrics Metrics

	AccessCodec  *jwtx.Codec
	RefreshCodec *jwtx.Codec

	// AppOrigin is the frontend base URL embedded in email links.
	AppOrigin string

	// SessionTTL is the server-side session lifetime (and refresh TTL).
	SessionTTL time.Duration
}

// LoginResult is what a successful login returns. MFARequired is reserved
// for a future 2FA challenge step and is always false today.
type LoginResult struct {
	User        domain.User
	Tokens      domain.TokenPair
	MFARequired bool
}

// RefreshResult carries the fresh access token and, when the session was
// renewed, a rotated refresh token. RefreshToken is empty when no rotation
// happened.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
}

// Login authenticates by email and password and opens a new session.
// Unknown email and wrong password both fail ErrInvalidCredentials.
func (s *AuthService) Login(
	ctx context.Context,
	email, password, userAgent string,
) (LoginResult, error) {
	now := time.Now().UTC()
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.metrics().RecordLoginFailure()
			return LoginResult{}, ErrInvalidCredentials
		}
		log.Error("failed to fetch user by email", slog.Any("error", err))
		return LoginResult{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		log.Info("login password mismatch", slog.String("user_id", user.ID))
		s.metrics().RecordLoginFailure()
		return LoginResult{}, ErrInvalidCredentials
	}

	session := domain.Session{
		ID:        idx.New().String(),
		UserID:    user.ID,
		UserAgent: userAgent,
		ExpiresAt: now.Add(s.SessionTTL),
		CreatedAt: now,
	}
	if err := s.Store.Sessions().Create(ctx, session); err != nil {
		log.Error("failed to create session", slog.Any("error", err))
		return LoginResult{}, err
	}

	accessToken, err := s.AccessCodec.SignAccess(user.ID, session.ID, now)
	if err != nil {
		return LoginResult{}, err
	}
	refreshToken, err := s.RefreshCodec.SignRefresh(session.ID, now)
	if err != nil {
		return LoginResult{}, err
	}

	log.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("session_id", session.ID),
	)
	s.metrics().RecordLogin()

	return LoginResult{
		User: user,
		Tokens: domain.TokenPair{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		},
		// 2FA challenge flow is not implemented; the flag is a stub for
		// clients that already branch on it.
		MFARequired: false,
	}, nil
}

// Refresh validates a refresh token against its session and mints a fresh
// access token. When the session's remaining lifetime has dropped to the
// renewal threshold or below, the session expiry is extended and a new
// refresh token is issued alongside.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	now := time.Now().UTC()
	log := slogx.FromContext(ctx)

	claims, err := s.RefreshCodec.VerifyRefresh(refreshToken)
	if err != nil {
		log.Info("refresh token rejected", slog.Any("error", err))
		return RefreshResult{}, ErrUnauthorized
	}

	session, err := s.Store.Sessions().GetByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return RefreshResult{}, ErrUnauthorized
		}
		log.Error("failed to fetch session", slog.Any("error", err))
		return RefreshResult{}, err
	}

	// Expired sessions are rejected, never deleted here; housekeeping
	// sweeps them later.
	if !session.Valid(now) {
		return RefreshResult{}, ErrUnauthorized
	}

	var newRefreshToken string
	if session.ExpiresAt.Sub(now) <= SessionRenewalThreshold {
		session.ExpiresAt = now.Add(s.SessionTTL)
		if err := s.Store.Sessions().ExtendExpiry(ctx, session.ID, session.ExpiresAt); err != nil {
			log.Error("failed to extend session", slog.Any("error", err))
			return RefreshResult{}, err
		}

		newRefreshToken, err = s.RefreshCodec.SignRefresh(session.ID, now)
		if err != nil {
			return RefreshResult{}, err
		}

		log.Debug("session renewed",
			slog.String("session_id", session.ID),
			slog.Time("expires_at", session.ExpiresAt),
		)
		s.metrics().RecordRefreshRotation()
	}

	accessToken, err := s.AccessCodec.SignAccess(session.UserID, session.ID, now)
	if err != nil {
		return RefreshResult{}, err
	}

	return RefreshResult{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	}, nil
}

// Logout deletes the session. Deleting an already-gone session is fine.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.Store.Sessions().DeleteByID(ctx, sessionID)
}

func (s *AuthService) metrics() Metrics {
	if s.Metrics == nil {
		return nopMetrics{}
	}
	return s.Metrics
}

type nopMetrics struct{}

func (nopMetrics) RecordRegistration()         {}
func (nopMetrics) RecordLogin()                {}
func (nopMetrics) RecordLoginFailure()         {}
func (nopMetrics) RecordRefreshRotation()      {}
func (nopMetrics) RecordEmailSent(kind string) {}
