package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/copperlane/gatehouse/internal/auth/domain"
	"github.com/copperlane/gatehouse/internal/auth/store"
	"github.com/copperlane/gatehouse/internal/auth/store/drivers/sqlite"
	"github.com/copperlane/gatehouse/pkg/idx"
	"github.com/stretchr/testify/require"
)

// newTestStore opens a throwaway file-backed database. A shared in-memory
// DSN does not survive the connection pool opening a second connection.
func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func newTestUser(t *testing.T, st *sqlite.Store, email string) domain.User {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	u := domain.User{
		ID:           idx.New().String(),
		Username:     "tester",
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Users().Create(context.Background(), u))
	return u
}

func TestUsersCreateAndGet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	u := newTestUser(t, st, "alice@example.com")

	exists, err := st.Users().ExistsByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = st.Users().ExistsByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	require.False(t, exists)

	got, err := st.Users().GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, u.PasswordHash, got.PasswordHash)
	require.False(t, got.EmailVerified)

	got, err = st.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, got.Email)

	_, err = st.Users().GetByID(ctx, idx.New().String())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsersCreateDuplicateEmail(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	u := newTestUser(t, st, "alice@example.com")

	dup := u
	dup.ID = idx.New().String()
	err := st.Users().Create(ctx, dup)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestUsersMarkEmailVerified(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	u := newTestUser(t, st, "alice@example.com")

	updated, err := st.Users().MarkEmailVerified(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, updated.EmailVerified)

	_, err = st.Users().MarkEmailVerified(ctx, idx.New().String())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsersUpdatePasswordHash(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	u := newTestUser(t, st, "alice@example.com")

	updated, err := st.Users().UpdatePasswordHash(ctx, u.ID, "new-hash")
	require.NoError(t, err)
	require.Equal(t, "new-hash", updated.PasswordHash)

	_, err = st.Users().UpdatePasswordHash(ctx, idx.New().String(), "x")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSessionsLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	u := newTestUser(t, st, "alice@example.com")

	first := domain.Session{
		ID:        idx.New().String(),
		UserID:    u.ID,
		UserAgent: "curl/8.0",
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now.Add(-time.Minute),
	}
	second := domain.Session{
		ID:        idx.New().String(),
		UserID:    u.ID,
		ExpiresAt: now.Add(2 * time.Hour),
		CreatedAt: now,
	}
	require.NoError(t, st.Sessions().Create(ctx, first))
	require.NoError(t, st.Sessions().Create(ctx, second))

	got, err := st.Sessions().GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.UserID)
	require.Equal(t, "curl/8.0", got.UserAgent)

	list, err := st.Sessions().ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, second.ID, list[0].ID, "newest first")

	newExpiry := now.Add(24 * time.Hour)
	require.NoError(t, st.Sessions().ExtendExpiry(ctx, first.ID, newExpiry))
	got, err = st.Sessions().GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.WithinDuration(t, newExpiry, got.ExpiresAt, time.Second)

	require.NoError(t, st.Sessions().DeleteByID(ctx, first.ID))
	_, err = st.Sessions().GetByID(ctx, first.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	// Deleting an already-deleted session is not an error
	require.NoError(t, st.Sessions().DeleteByID(ctx, first.ID))

	require.NoError(t, st.Sessions().DeleteAllByUser(ctx, u.ID))
	list, err = st.Sessions().ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestSessionsDeleteExpired(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	u := newTestUser(t, st, "alice@example.com")

	expired := domain.Session{
		ID:        idx.New().String(),
		UserID:    u.ID,
		ExpiresAt: now.Add(-time.Hour),
		CreatedAt: now.Add(-2 * time.Hour),
	}
	live := domain.Session{
		ID:        idx.New().String(),
		UserID:    u.ID,
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
	require.NoError(t, st.Sessions().Create(ctx, expired))
	require.NoError(t, st.Sessions().Create(ctx, live))

	require.NoError(t, st.Sessions().DeleteExpired(ctx, now))

	_, err := st.Sessions().GetByID(ctx, expired.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Sessions().GetByID(ctx, live.ID)
	require.NoError(t, err)
}

func newTestCode(
	t *testing.T,
	st *sqlite.Store,
	userID, code string,
	typ domain.VerificationType,
	expiresAt, createdAt time.Time,
) domain.VerificationCode {
	t.Helper()

	c := domain.VerificationCode{
		ID:        idx.New().String(),
		UserID:    userID,
		Code:      code,
		Type:      typ,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}
	require.NoError(t, st.VerificationCodes().Create(context.Background(), c))
	return c
}

func TestVerificationCodesUniqueCode(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	u := newTestUser(t, st, "alice@example.com")
	newTestCode(t, st, u.ID, "abc123", domain.VerificationEmail, now.Add(time.Hour), now)

	dup := domain.VerificationCode{
		ID:        idx.New().String(),
		UserID:    u.ID,
		Code:      "abc123",
		Type:      domain.VerificationEmail,
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
	err := st.VerificationCodes().Create(ctx, dup)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestVerificationCodesGetActiveByCode(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	u := newTestUser(t, st, "alice@example.com")
	live := newTestCode(t, st, u.ID, "live-code", domain.VerificationEmail, now.Add(time.Hour), now)
	newTestCode(t, st, u.ID, "stale-code", domain.VerificationEmail, now.Add(-time.Minute), now.Add(-time.Hour))

	got, err := st.VerificationCodes().GetActiveByCode(ctx, "live-code", domain.VerificationEmail, now)
	require.NoError(t, err)
	require.Equal(t, live.ID, got.ID)
	require.Equal(t, domain.VerificationEmail, got.Type)

	// Expired codes are invisible
	_, err = st.VerificationCodes().GetActiveByCode(ctx, "stale-code", domain.VerificationEmail, now)
	require.ErrorIs(t, err, store.ErrNotFound)

	// Type mismatch misses
	_, err = st.VerificationCodes().GetActiveByCode(ctx, "live-code", domain.VerificationPasswordReset, now)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestVerificationCodesConsumeIsSingleUse(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	u := newTestUser(t, st, "alice@example.com")
	c := newTestCode(t, st, u.ID, "one-shot", domain.VerificationEmail, now.Add(time.Hour), now)

	require.NoError(t, st.VerificationCodes().Consume(ctx, c.ID))
	require.ErrorIs(t, st.VerificationCodes().Consume(ctx, c.ID), store.ErrNotFound)
}

func TestVerificationCodesCountByUserSince(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	u := newTestUser(t, st, "alice@example.com")
	newTestCode(t, st, u.ID, "r1", domain.VerificationPasswordReset, now.Add(time.Hour), now.Add(-2*time.Minute))
	newTestCode(t, st, u.ID, "r2", domain.VerificationPasswordReset, now.Add(time.Hour), now.Add(-time.Minute))
	newTestCode(t, st, u.ID, "old", domain.VerificationPasswordReset, now.Add(time.Hour), now.Add(-10*time.Minute))
	newTestCode(t, st, u.ID, "other", domain.VerificationEmail, now.Add(time.Hour), now)

	count, err := st.VerificationCodes().CountByUserSince(
		ctx, u.ID, domain.VerificationPasswordReset, now.Add(-3*time.Minute))
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	u := newTestUser(t, st, "alice@example.com")

	wantErr := store.ErrNotFound
	err := st.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Users().MarkEmailVerified(ctx, u.ID); err != nil {
			return err
		}
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)

	got, err := st.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.EmailVerified, "rolled-back write must not be visible")
}

func TestWithTxCommits(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	u := newTestUser(t, st, "alice@example.com")

	err := st.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.Users().MarkEmailVerified(ctx, u.ID)
		return err
	})
	require.NoError(t, err)

	got, err := st.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.EmailVerified)
}
