package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/voluntree/voluntree/internal/auth/domain"
	"github.com/voluntree/voluntree/internal/auth/store"
	"github.com/voluntree/voluntree/pkg/cryptox"
	"github.com/voluntree/voluntree/pkg/idx"
	"github.com/voluntree/voluntree/pkg/jwtx"
)

// SessionService owns the refresh-token lifecycle: start a lineage
// after a verified login, rotate it on refresh, revoke it on logout.
// Raw refresh tokens never touch the store; only keyed fingerprints do.
type SessionService struct {
	Store  store.Store
	Signer jwtx.Signer
	Logger *slog.Logger

	// HashKey keys the refresh-token fingerprints, like the challenge
	// hash key it must stay stable across restarts.
	HashKey []byte

	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Now is swappable for tests. Nil means time.Now.
	Now func() time.Time
}

// Start creates a new session lineage for the account and returns the
// first token pair. Each call makes an independent lineage, so logins
// from several devices coexist.
func (s *SessionService) Start(ctx context.Context, acct domain.Account) (domain.TokenPair, error) {
	now := s.now()

	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}

	sess := domain.Session{
		ID:        idx.New().String(),
		AccountID: acct.ID,
		TokenHash: cryptox.KeyedFingerprint(s.HashKey, raw),
		CreatedAt: now,
		ExpiresAt: now.Add(s.refreshTTL()),
	}
	if err := s.Store.Sessions().CreateSession(ctx, sess); err != nil {
		return domain.TokenPair{}, fmt.Errorf("create session: %w", err)
	}

	pair, err := s.mintPair(acct, sess.ID, raw, now)
	if err != nil {
		return domain.TokenPair{}, err
	}

	s.logger().InfoContext(ctx, "session started",
		slog.String("account_id", acct.ID),
		slog.String("session_id", sess.ID),
	)
	return pair, nil
}

// Rotate exchanges a live refresh token for a fresh pair. The old token
// is consumed and a replacement written in one transaction, so a replay
// of the old token can never succeed: either it loses the race and sees
// ErrSessionInvalid, or it wins and the honest holder does. The session
// id survives rotation; only the hash and expiry change.
func (s *SessionService) Rotate(ctx context.Context, rawRefresh string) (domain.TokenPair, domain.Account, error) {
	now := s.now()
	oldHash := cryptox.KeyedFingerprint(s.HashKey, rawRefresh)

	newRaw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenPair{}, domain.Account{}, fmt.Errorf("generate refresh token: %w", err)
	}

	var (
		sess domain.Session
		acct domain.Account
	)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		sess, err = tx.Sessions().ConsumeSession(ctx, oldHash, now)
		if err != nil {
			return err
		}

		acct, err = tx.Accounts().GetAccountByID(ctx, sess.AccountID)
		if err != nil {
			return err
		}

		return tx.Sessions().CreateSession(ctx, domain.Session{
			ID:        sess.ID,
			AccountID: sess.AccountID,
			TokenHash: cryptox.KeyedFingerprint(s.HashKey, newRaw),
			CreatedAt: sess.CreatedAt,
			ExpiresAt: now.Add(s.refreshTTL()),
		})
	})
	if errors.Is(err, store.ErrNotFound) {
		return domain.TokenPair{}, domain.Account{}, ErrSessionInvalid
	}
	if err != nil {
		return domain.TokenPair{}, domain.Account{}, fmt.Errorf("rotate session: %w", err)
	}

	pair, err := s.mintPair(acct, sess.ID, newRaw, now)
	if err != nil {
		return domain.TokenPair{}, domain.Account{}, err
	}

	s.logger().InfoContext(ctx, "session rotated",
		slog.String("account_id", acct.ID),
		slog.String("session_id", sess.ID),
	)
	return pair, acct, nil
}

// Revoke ends the lineage behind the presented refresh token. Unknown
// and already-revoked tokens succeed too; logout is idempotent.
func (s *SessionService) Revoke(ctx context.Context, rawRefresh string) error {
	hash := cryptox.KeyedFingerprint(s.HashKey, rawRefresh)
	if err := s.Store.Sessions().DeleteSessionByTokenHash(ctx, hash); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RevokeAll ends every lineage for the account, signing out all devices.
func (s *SessionService) RevokeAll(ctx context.Context, accountID string) error {
	if err := s.Store.Sessions().DeleteSessionsByAccount(ctx, accountID); err != nil {
		return fmt.Errorf("revoke account sessions: %w", err)
	}
	s.logger().InfoContext(ctx, "all sessions revoked", slog.String("account_id", accountID))
	return nil
}

// List returns the account's device logins, flagging the one that
// matches the presented refresh token.
func (s *SessionService) List(ctx context.Context, accountID, rawRefresh string) ([]domain.SessionInfo, error) {
	sessions, err := s.Store.Sessions().ListSessionsByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	currentHash := ""
	if rawRefresh != "" {
		currentHash = cryptox.KeyedFingerprint(s.HashKey, rawRefresh)
	}

	out := make([]domain.SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, domain.SessionInfo{
			ID:        sess.ID,
			CreatedAt: sess.CreatedAt,
			ExpiresAt: sess.ExpiresAt,
			Current:   currentHash != "" && cryptox.FingerprintEqual(sess.TokenHash, currentHash),
		})
	}
	return out, nil
}

func (s *SessionService) mintPair(acct domain.Account, sessionID, rawRefresh string, now time.Time) (domain.TokenPair, error) {
	claims := jwtx.NewAccessClaims(acct.ID, sessionID, acct.Role, acct.Email, s.Issuer, s.accessTTL(), now)
	access, err := s.Signer.Sign(claims)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: rawRefresh,
		AccessTTL:    s.accessTTL(),
		RefreshTTL:   s.refreshTTL(),
	}, nil
}

func (s *SessionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *SessionService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return jwtx.DefaultAccessTokenTTL
}

func (s *SessionService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return jwtx.DefaultRefreshTokenTTL
}

func (s *SessionService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
