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
	"github.com/copperlane/gatehouse/pkg/slogx"
)

// ForgotPassword issues a PASSWORD_RESET code and emails the reset link.
// Unlike registration, delivery here is mandatory: a send that yields no
// provider message id fails the whole call, because the user has no other
// way to obtain the code.
//
// Requests are throttled per user: at most MaxResetRequests codes inside
// ResetRequestWindow. The count query is point-in-time, so concurrent
// double-submission can slip past it; this is best-effort throttling.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	now := time.Now().UTC()
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Enumeration via this endpoint is an accepted tradeoff, in
			// contrast to login's collapsed credential error.
			return ErrNotFound
		}
		log.Error("failed to fetch user by email", slog.Any("error", err))
		return err
	}

	count, err := s.Store.VerificationCodes().CountByUserSince(
		ctx, user.ID, domain.VerificationPasswordReset, now.Add(-ResetRequestWindow))
	if err != nil {
		log.Error("failed to count reset requests", slog.Any("error", err))
		return err
	}
	if count >= MaxResetRequests {
		log.Warn("password reset throttled", slog.String("user_id", user.ID))
		return ErrTooManyRequests
	}

	code, err := s.createVerificationCode(
		ctx, user.ID, domain.VerificationPasswordReset, PasswordResetTTL)
	if err != nil {
		log.Error("failed to create reset code", slog.Any("error", err))
		return err
	}

	result, err := s.Mailer.Send(ctx,
		mail.PasswordResetMessage(user.Email, s.AppOrigin, code.Code, code.ExpiresAt))
	if err != nil || result.ID == "" {
		log.Error("password reset email failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return ErrEmailDelivery
	}

	log.Info("password reset email sent",
		slog.String("user_id", user.ID),
		slog.String("message_id", result.ID),
	)
	s.metrics().RecordEmailSent("password_reset")

	return nil
}

// ResetPassword consumes an unexpired PASSWORD_RESET code, replaces the
// user's password hash, and deletes every session the user owns so any
// stolen refresh token dies with the old password.
func (s *AuthService) ResetPassword(
	ctx context.Context,
	password, verificationCode string,
) (domain.User, error) {
	now := time.Now().UTC()
	log := slogx.FromContext(ctx)

	valid, err := s.Store.VerificationCodes().GetActiveByCode(
		ctx, verificationCode, domain.VerificationPasswordReset, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrNotFound
		}
		log.Error("failed to fetch reset code", slog.Any("error", err))
		return domain.User{}, err
	}

	passwordHash, err := cryptox.HashPassword(password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, err
	}

	var user domain.User
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		user, err = tx.Users().UpdatePasswordHash(ctx, valid.UserID, passwordHash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrBadRequest
			}
			return err
		}

		if err := tx.VerificationCodes().Consume(ctx, valid.ID); err != nil {
			return err
		}

		// Global logout: every other device goes with the old password.
		return tx.Sessions().DeleteAllByUser(ctx, valid.UserID)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// A concurrent request spent the code first.
			return domain.User{}, ErrNotFound
		}
		if errors.Is(err, ErrBadRequest) {
			return domain.User{}, ErrBadRequest
		}
		log.Error("failed to reset password", slog.Any("error", err))
		return domain.User{}, err
	}

	log.Info("password reset", slog.String("user_id", user.ID))
	return user, nil
}
