package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/voluntree/voluntree/internal/auth/domain"
	"github.com/voluntree/voluntree/internal/auth/store"
	"github.com/voluntree/voluntree/pkg/idx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "auth_test.db")
	s, err := NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedAccount(t *testing.T, s *Store, email string) domain.Account {
	t.Helper()

	a := domain.Account{
		ID:           idx.New().String(),
		Email:        email,
		Name:         "Test Volunteer",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		Role:         domain.RoleVolunteer,
	}
	require.NoError(t, s.Accounts().CreateAccount(context.Background(), a))
	return a
}

func TestStore_Ping(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
}

func TestStore_WithTxCommit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acct := seedAccount(t, s, "tx@example.org")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		return tx.Sessions().CreateSession(ctx, domain.Session{
			ID:        idx.New().String(),
			AccountID: acct.ID,
			TokenHash: "hash-a",
			CreatedAt: time.Now(),
			ExpiresAt: time.Now().Add(time.Hour),
		})
	})
	require.NoError(t, err)

	list, err := s.Sessions().ListSessionsByAccount(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestStore_WithTxRollback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acct := seedAccount(t, s, "rollback@example.org")

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().CreateSession(ctx, domain.Session{
			ID:        idx.New().String(),
			AccountID: acct.ID,
			TokenHash: "hash-b",
			CreatedAt: time.Now(),
			ExpiresAt: time.Now().Add(time.Hour),
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	list, err := s.Sessions().ListSessionsByAccount(ctx, acct.ID)
	require.NoError(t, err)
	require.Empty(t, list, "failed tx must leave no rows behind")
}
