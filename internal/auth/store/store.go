package store

import (
	"context"
	"errors"
	"time"

	"github.com/copperlane/gatehouse/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Users() Users
	Sessions() Sessions
	VerificationCodes() VerificationCodes

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended way to handle multi-step writes (e.g. password reset).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It exposes the same repos plus Commit/Rollback.
type Tx interface {
	Users() Users
	Sessions() Sessions
	VerificationCodes() VerificationCodes

	Commit() error
	Rollback() error
}

type Users interface {
	// ExistsByEmail reports whether a user with the given email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Create inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	Create(ctx context.Context, u domain.User) error

	// GetByEmail is used during login and forgot-password.
	GetByEmail(ctx context.Context, email string) (domain.User, error)

	// GetByID returns a user by id.
	GetByID(ctx context.Context, id string) (domain.User, error)

	// MarkEmailVerified flips the verified flag and bumps updated_at,
	// returning the updated user or ErrNotFound.
	MarkEmailVerified(ctx context.Context, userID string) (domain.User, error)

	// UpdatePasswordHash sets the password_hash and bumps updated_at,
	// returning the updated user or ErrNotFound.
	UpdatePasswordHash(ctx context.Context, userID, newHash string) (domain.User, error)
}

type Sessions interface {
	// Create inserts a new session row.
	Create(ctx context.Context, s domain.Session) error

	// GetByID returns a session by id. Expired sessions are still returned;
	// validity is the caller's check.
	GetByID(ctx context.Context, id string) (domain.Session, error)

	// ExtendExpiry persists a rotated expiry timestamp.
	ExtendExpiry(ctx context.Context, id string, expiresAt time.Time) error

	// ListByUser returns all sessions for a user, newest first.
	ListByUser(ctx context.Context, userID string) ([]domain.Session, error)

	// DeleteByID removes a session. Deleting a missing session is not an error.
	DeleteByID(ctx context.Context, id string) error

	// DeleteAllByUser removes every session owned by the user (global logout).
	DeleteAllByUser(ctx context.Context, userID string) error

	// DeleteExpired is housekeeping only; request-path expiry checks stay lazy.
	DeleteExpired(ctx context.Context, now time.Time) error
}

type VerificationCodes interface {
	// Create inserts a new code. Returns ErrAlreadyExists when the code
	// string collides with an existing row (UNIQUE constraint); callers
	// regenerate and retry.
	Create(ctx context.Context, c domain.VerificationCode) error

	// GetActiveByCode returns the unexpired code matching code+type.
	GetActiveByCode(
		ctx context.Context,
		code string,
		typ domain.VerificationType,
		now time.Time,
	) (domain.VerificationCode, error)

	// CountByUserSince counts codes of the given type created for the user
	// at or after since. Used for reset-request throttling.
	CountByUserSince(
		ctx context.Context,
		userID string,
		typ domain.VerificationType,
		since time.Time,
	) (int, error)

	// Consume deletes the code by id. Returns ErrNotFound when the row was
	// already consumed by a concurrent request; the conditional delete is
	// what makes codes strictly single-use.
	Consume(ctx context.Context, id string) error

	// DeleteExpired is housekeeping.
	DeleteExpired(ctx context.Context, now time.Time) error
}
