package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/copperlane/gatehouse/internal/auth/domain"
	"github.com/copperlane/gatehouse/internal/auth/store"
)

type sessionsRepo struct {
	db dbtx
}

func (r *sessionsRepo) Create(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, user_agent, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.UserID, nullString(s.UserAgent), s.ExpiresAt, s.CreatedAt,
	)
	return err
}

func (r *sessionsRepo) GetByID(ctx context.Context, id string) (domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, user_agent, expires_at, created_at
		FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

func (r *sessionsRepo) ExtendExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET expires_at = ? WHERE id = ?`, expiresAt, id)
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

func (r *sessionsRepo) ListByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, user_agent, expires_at, created_at
		FROM sessions WHERE user_id = ?
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		var s domain.Session
		var agent sql.NullString
		if err := rows.Scan(&s.ID, &s.UserID, &agent, &s.ExpiresAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		if agent.Valid {
			s.UserAgent = agent.String
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionsRepo) DeleteByID(ctx context.Context, id string) error {
	// Intentionally idempotent: zero rows affected is fine.
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (r *sessionsRepo) DeleteAllByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

func (r *sessionsRepo) DeleteExpired(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now)
	return err
}

func scanSession(row *sql.Row) (domain.Session, error) {
	var s domain.Session
	var agent sql.NullString
	err := row.Scan(&s.ID, &s.UserID, &agent, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	if agent.Valid {
		s.UserAgent = agent.String
	}
	return s, nil
}
