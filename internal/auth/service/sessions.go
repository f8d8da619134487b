package service

import (
	"context"
	"errors"

	"github.com/copperlane/gatehouse/internal/auth/domain"
	"github.com/copperlane/gatehouse/internal/auth/store"
)

// ListSessions returns every session the user owns, newest first. Expired
// sessions are included; clients can show them greyed out.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]domain.Session, error) {
	return s.Store.Sessions().ListByUser(ctx, userID)
}

// RevokeSession deletes one of the caller's sessions. Sessions belonging to
// other users are reported as missing rather than forbidden, so session ids
// can't be probed.
func (s *AuthService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	session, err := s.Store.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if session.UserID != userID {
		return ErrNotFound
	}
	return s.Store.Sessions().DeleteByID(ctx, sessionID)
}
