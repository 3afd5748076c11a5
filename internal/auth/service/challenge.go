package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/voluntree/voluntree/internal/auth/domain"
	"github.com/voluntree/voluntree/internal/auth/notify"
	"github.com/voluntree/voluntree/internal/auth/store"
	"github.com/voluntree/voluntree/pkg/cryptox"
)

const (
	DefaultOTPTTL      = 5 * time.Minute
	DefaultOTPCooldown = 30 * time.Second
	DefaultMaxAttempts = 5
	DefaultCodeLength  = 6
)

// ChallengeService runs the one-time-code flow: issue a code to the
// account's address, then check submissions against it under an attempt
// ceiling. All state lives in the challenge store; the service itself
// is stateless and safe for concurrent use.
type ChallengeService struct {
	Challenges store.Challenges
	Dispatcher notify.Dispatcher
	Logger     *slog.Logger

	// HashKey keys the code fingerprints. It must stay stable across
	// restarts or outstanding challenges become unverifiable.
	HashKey []byte

	TTL         time.Duration
	Cooldown    time.Duration
	MaxAttempts int
	CodeLength  int

	// Now is swappable for tests. Nil means time.Now.
	Now func() time.Time
}

// VerifyResult reports how many attempts remain after a wrong guess.
type VerifyResult struct {
	AttemptsRemaining int
}

// Issue generates a fresh code for the account, stores its fingerprint,
// and dispatches the code. A new challenge supersedes any outstanding
// one. Returns ErrCooldown when one was issued too recently, and
// ErrDispatchFailed (with all state rolled back) when delivery fails.
func (s *ChallengeService) Issue(ctx context.Context, acct domain.Account) error {
	now := s.now()

	ok, err := s.Challenges.ReserveCooldown(ctx, acct.ID, now.Add(s.cooldown()), now)
	if err != nil {
		return fmt.Errorf("reserve cooldown: %w", err)
	}
	if !ok {
		return ErrCooldown
	}

	code, err := cryptox.GenerateNumericCode(s.codeLength())
	if err != nil {
		s.rollbackIssue(ctx, acct.ID, false)
		return fmt.Errorf("generate code: %w", err)
	}

	ch := domain.Challenge{
		AccountID: acct.ID,
		CodeHash:  s.fingerprint(acct.ID, code),
		Attempts:  0,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl()),
	}
	if err := s.Challenges.PutChallenge(ctx, ch); err != nil {
		s.rollbackIssue(ctx, acct.ID, false)
		return fmt.Errorf("store challenge: %w", err)
	}

	// Dispatch happens outside any store state; on failure the challenge
	// and the cooldown reservation are both rolled back so the user can
	// retry immediately.
	if err := s.Dispatcher.Send(ctx, acct.Email, code, s.ttl()); err != nil {
		s.logger().ErrorContext(ctx, "otp dispatch failed",
			slog.String("account_id", acct.ID),
			slog.String("error", err.Error()),
		)
		s.rollbackIssue(ctx, acct.ID, true)
		return ErrDispatchFailed
	}

	s.logger().InfoContext(ctx, "otp issued",
		slog.String("account_id", acct.ID),
		slog.Time("expires_at", ch.ExpiresAt),
	)
	return nil
}

// Verify checks a submitted code. On success the challenge is consumed.
// A wrong code burns an attempt and reports how many remain; once the
// ceiling is reached every further submission returns ErrLocked without
// touching the stored hash.
func (s *ChallengeService) Verify(ctx context.Context, accountID, code string) (VerifyResult, error) {
	now := s.now()

	ch, err := s.Challenges.GetChallenge(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return VerifyResult{}, ErrExpired
	}
	if err != nil {
		return VerifyResult{}, fmt.Errorf("load challenge: %w", err)
	}

	// Expiry wins over the ceiling: a challenge that is both locked and
	// past its TTL reads as expired, which is also what the cache-variant
	// store reports once the key lapses.
	if ch.Expired(now) {
		if err := s.Challenges.DeleteChallenge(ctx, accountID); err != nil {
			return VerifyResult{}, fmt.Errorf("drop expired challenge: %w", err)
		}
		return VerifyResult{}, ErrExpired
	}

	if ch.Attempts >= s.maxAttempts() {
		return VerifyResult{}, ErrLocked
	}

	if cryptox.FingerprintEqual(ch.CodeHash, s.fingerprint(accountID, code)) {
		if err := s.Challenges.DeleteChallenge(ctx, accountID); err != nil {
			return VerifyResult{}, fmt.Errorf("consume challenge: %w", err)
		}
		// Free the resend slot so a later login is not blocked by the
		// cooldown of the challenge just consumed.
		if err := s.Challenges.ClearCooldown(ctx, accountID); err != nil {
			s.logger().WarnContext(ctx, "cooldown clear failed after verify",
				slog.String("account_id", accountID),
				slog.String("error", err.Error()),
			)
		}
		return VerifyResult{AttemptsRemaining: s.maxAttempts() - ch.Attempts}, nil
	}

	updated, err := s.Challenges.IncrementAttempts(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		// Consumed or swept between load and increment.
		return VerifyResult{}, ErrExpired
	}
	if err != nil {
		return VerifyResult{}, fmt.Errorf("count attempt: %w", err)
	}

	remaining := s.maxAttempts() - updated.Attempts
	if remaining < 0 {
		remaining = 0
	}
	return VerifyResult{AttemptsRemaining: remaining}, ErrInvalidCode
}

func (s *ChallengeService) rollbackIssue(ctx context.Context, accountID string, dropChallenge bool) {
	if dropChallenge {
		if err := s.Challenges.DeleteChallenge(ctx, accountID); err != nil {
			s.logger().ErrorContext(ctx, "challenge rollback failed",
				slog.String("account_id", accountID),
				slog.String("error", err.Error()),
			)
		}
	}
	if err := s.Challenges.ClearCooldown(ctx, accountID); err != nil {
		s.logger().ErrorContext(ctx, "cooldown rollback failed",
			slog.String("account_id", accountID),
			slog.String("error", err.Error()),
		)
	}
}

// fingerprint binds the code to the account so a code issued for one
// account never verifies for another.
func (s *ChallengeService) fingerprint(accountID, code string) string {
	return cryptox.KeyedFingerprint(s.HashKey, accountID+":"+code)
}

func (s *ChallengeService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *ChallengeService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultOTPTTL
}

func (s *ChallengeService) cooldown() time.Duration {
	if s.Cooldown > 0 {
		return s.Cooldown
	}
	return DefaultOTPCooldown
}

func (s *ChallengeService) maxAttempts() int {
	if s.MaxAttempts > 0 {
		return s.MaxAttempts
	}
	return DefaultMaxAttempts
}

func (s *ChallengeService) codeLength() int {
	if s.CodeLength > 0 {
		return s.CodeLength
	}
	return DefaultCodeLength
}

func (s *ChallengeService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
