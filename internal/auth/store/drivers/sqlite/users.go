package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/copperlane/gatehouse/internal/auth/domain"
	"github.com/copperlane/gatehouse/internal/auth/store"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, username, email, password_hash, email_verified,
	two_factor_enabled, email_notifications, two_factor_secret,
	created_at, updated_at`

func (r *usersRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM users WHERE email = ?`, email,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *usersRepo) Create(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			id, username, email, password_hash, email_verified,
			two_factor_enabled, email_notifications, two_factor_secret,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.EmailVerified,
		u.Preferences.TwoFactorEnabled, u.Preferences.EmailNotifications,
		nullString(u.Preferences.TwoFactorSecret),
		u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) MarkEmailVerified(ctx context.Context, userID string) (domain.User, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET email_verified = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), userID,
	)
	if err != nil {
		return domain.User{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return domain.User{}, err
	} else if n == 0 {
		return domain.User{}, store.ErrNotFound
	}
	return r.GetByID(ctx, userID)
}

func (r *usersRepo) UpdatePasswordHash(
	ctx context.Context,
	userID, newHash string,
) (domain.User, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID,
	)
	if err != nil {
		return domain.User{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return domain.User{}, err
	} else if n == 0 {
		return domain.User{}, store.ErrNotFound
	}
	return r.GetByID(ctx, userID)
}

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	var secret sql.NullString
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.EmailVerified,
		&u.Preferences.TwoFactorEnabled, &u.Preferences.EmailNotifications,
		&secret, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	if secret.Valid {
		u.Preferences.TwoFactorSecret = secret.String
	}
	return u, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
