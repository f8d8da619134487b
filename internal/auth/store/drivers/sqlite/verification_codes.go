package sqlite

import (
	"context"
	"time"

	"github.com/copperlane/gatehouse/internal/auth/domain"
	"github.com/copperlane/gatehouse/internal/auth/store"
)

type verificationCodesRepo struct {
	db dbtx
}

func (r *verificationCodesRepo) Create(ctx context.Context, c domain.VerificationCode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO verification_codes (id, user_id, code, type, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Code, string(c.Type), c.ExpiresAt, c.CreatedAt,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *verificationCodesRepo) GetActiveByCode(
	ctx context.Context,
	code string,
	typ domain.VerificationType,
	now time.Time,
) (domain.VerificationCode, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, code, type, expires_at, created_at
		FROM verification_codes
		WHERE code = ? AND type = ? AND expires_at > ?`,
		code, string(typ), now)

	var c domain.VerificationCode
	var t string
	err := row.Scan(&c.ID, &c.UserID, &c.Code, &t, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		return domain.VerificationCode{}, mapNotFound(err)
	}
	c.Type = domain.VerificationType(t)
	return c, nil
}

func (r *verificationCodesRepo) CountByUserSince(
	ctx context.Context,
	userID string,
	typ domain.VerificationType,
	since time.Time,
) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM verification_codes
		WHERE user_id = ? AND type = ? AND created_at >= ?`,
		userID, string(typ), since,
	).Scan(&n)
	return n, err
}

// Consume is a compare-and-delete: the affected-row count tells a concurrent
// loser that the code was already spent, which is what makes codes strictly
// single-use.
func (r *verificationCodesRepo) Consume(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM verification_codes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *verificationCodesRepo) DeleteExpired(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM verification_codes WHERE expires_at <= ?`, now)
	return err
}
