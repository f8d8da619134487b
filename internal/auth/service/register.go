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
	"github.com/copperlane/gatehouse/pkg/slogx"
)

// Register creates a new user, issues an email-verification code, and sends
// the confirmation email. The email send is fire-and-forget: a delivery
// failure is logged but does not roll back the created user, so the caller
// can re-request verification later.
func (s *AuthService) Register(
	ctx context.Context,
	username, password, email string,
) (domain.User, error) {
	now := time.Now().UTC()
	log := slogx.FromContext(ctx)

	exists, err := s.Store.Users().ExistsByEmail(ctx, email)
	if err != nil {
		log.Error("failed to check email availability", slog.Any("error", err))
		return domain.User{}, err
	}
	if exists {
		return domain.User{}, ErrEmailTaken
	}

	passwordHash, err := cryptox.HashPassword(password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Preferences: domain.Preferences{
			EmailNotifications: true,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Lost a race with a concurrent registration for the same email.
			return domain.User{}, ErrEmailTaken
		}
		log.Error("failed to create user", slog.Any("error", err))
		return domain.User{}, err
	}

	code, err := s.createVerificationCode(ctx, user.ID, domain.VerificationEmail, EmailVerificationTTL)
	if err != nil {
		log.Error("failed to create verification code", slog.Any("error", err))
		return domain.User{}, err
	}

	if _, err := s.Mailer.Send(ctx, mail.VerifyEmailMessage(user.Email, s.AppOrigin, code.Code)); err != nil {
		// Documented risk: the user exists but never got the link. They can
		// still log in and ask for verification again.
		log.Warn("verification email failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	} else {
		s.metrics().RecordEmailSent("verify_email")
	}

	log.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	s.metrics().RecordRegistration()

	return user, nil
}

// VerifyEmail consumes an unexpired EMAIL_VERIFICATION code and flips the
// owning user's verified flag. The flag update happens before the code is
// consumed so a crash in between leaves the code usable for retry; both
// writes share a transaction, and the conditional consume makes a second
// presentation of the same code fail ErrNotFound.
func (s *AuthService) VerifyEmail(ctx context.Context, code string) (domain.User, error) {
	now := time.Now().UTC()
	log := slogx.FromContext(ctx)

	valid, err := s.Store.VerificationCodes().GetActiveByCode(
		ctx, code, domain.VerificationEmail, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrNotFound
		}
		log.Error("failed to fetch verification code", slog.Any("error", err))
		return domain.User{}, err
	}

	var user domain.User
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		user, err = tx.Users().MarkEmailVerified(ctx, valid.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrBadRequest
			}
			return err
		}
		return tx.VerificationCodes().Consume(ctx, valid.ID)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// A concurrent request spent the code first.
			return domain.User{}, ErrNotFound
		}
		if errors.Is(err, ErrBadRequest) {
			return domain.User{}, ErrBadRequest
		}
		log.Error("failed to verify email", slog.Any("error", err))
		return domain.User{}, err
	}

	log.Info("email verified", slog.String("user_id", user.ID))
	return user, nil
}

// createVerificationCode inserts a fresh code, regenerating on the
// (astronomically rare) UNIQUE collision.
func (s *AuthService) createVerificationCode(
	ctx context.Context,
	userID string,
	typ domain.VerificationType,
	ttl time.Duration,
) (domain.VerificationCode, error) {
	now := time.Now().UTC()

	var lastErr error
	for range codeCreateAttempts {
		code := domain.VerificationCode{
			ID:        idx.New().String(),
			UserID:    userID,
			Code:      cryptox.GenerateVerificationCode(),
			Type:      typ,
			ExpiresAt: now.Add(ttl),
			CreatedAt: now,
		}

		err := s.Store.VerificationCodes().Create(ctx, code)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			return domain.VerificationCode{}, err
		}
		lastErr = err
	}
	return domain.VerificationCode{}, lastErr
}
