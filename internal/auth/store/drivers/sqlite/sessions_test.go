package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voluntree/voluntree/internal/auth/domain"
	"github.com/voluntree/voluntree/internal/auth/store"
	"github.com/voluntree/voluntree/pkg/idx"
)

func seedSession(t *testing.T, s *Store, accountID, tokenHash string, expiresAt time.Time) domain.Session {
	t.Helper()

	sess := domain.Session{
		ID:        idx.New().String(),
		AccountID: accountID,
		TokenHash: tokenHash,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
	require.NoError(t, s.Sessions().CreateSession(context.Background(), sess))
	return sess
}

func TestSessions_ConsumeSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acct := seedAccount(t, s, "consume@example.org")

	now := time.Now().UTC()
	sess := seedSession(t, s, acct.ID, "hash-live", now.Add(time.Hour))

	got, err := s.Sessions().ConsumeSession(ctx, "hash-live", now)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, acct.ID, got.AccountID)

	// The row is gone, so a replay of the same token misses.
	_, err = s.Sessions().ConsumeSession(ctx, "hash-live", now)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSessions_ConsumeExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acct := seedAccount(t, s, "stale@example.org")

	now := time.Now().UTC()
	seedSession(t, s, acct.ID, "hash-stale", now.Add(-time.Minute))

	_, err := s.Sessions().ConsumeSession(ctx, "hash-stale", now)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSessions_ListByAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acct := seedAccount(t, s, "multi@example.org")
	other := seedAccount(t, s, "other@example.org")

	exp := time.Now().Add(time.Hour)
	seedSession(t, s, acct.ID, "hash-1", exp)
	seedSession(t, s, acct.ID, "hash-2", exp)
	seedSession(t, s, other.ID, "hash-3", exp)

	list, err := s.Sessions().ListSessionsByAccount(ctx, acct.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	for _, sess := range list {
		assert.Equal(t, acct.ID, sess.AccountID)
	}
}

func TestSessions_DeleteByTokenHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acct := seedAccount(t, s, "logout@example.org")

	now := time.Now().UTC()
	seedSession(t, s, acct.ID, "hash-out", now.Add(time.Hour))

	require.NoError(t, s.Sessions().DeleteSessionByTokenHash(ctx, "hash-out"))
	_, err := s.Sessions().ConsumeSession(ctx, "hash-out", now)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Unknown hashes delete cleanly; logout is idempotent.
	assert.NoError(t, s.Sessions().DeleteSessionByTokenHash(ctx, "hash-out"))
}

func TestSessions_DeleteByAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acct := seedAccount(t, s, "wipe@example.org")

	exp := time.Now().Add(time.Hour)
	seedSession(t, s, acct.ID, "hash-a", exp)
	seedSession(t, s, acct.ID, "hash-b", exp)

	require.NoError(t, s.Sessions().DeleteSessionsByAccount(ctx, acct.ID))

	list, err := s.Sessions().ListSessionsByAccount(ctx, acct.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSessions_DeleteExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acct := seedAccount(t, s, "sweep@example.org")

	now := time.Now().UTC()
	seedSession(t, s, acct.ID, "hash-old", now.Add(-time.Minute))
	live := seedSession(t, s, acct.ID, "hash-new", now.Add(time.Hour))

	require.NoError(t, s.Sessions().DeleteExpiredSessions(ctx, now))

	list, err := s.Sessions().ListSessionsByAccount(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, live.ID, list[0].ID)
}
