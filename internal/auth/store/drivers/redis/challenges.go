// Package redis provides the cache-variant challenge store. Challenge
// and cooldown records live under prefixed keys with native per-key
// TTL, so expiry needs no background sweep, and the per-account
// atomicity the state machine needs comes from redis primitives:
// SET NX for cooldown reservation and WATCH/MULTI for the attempt
// counter.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/voluntree/voluntree/internal/auth/domain"
	"github.com/voluntree/voluntree/internal/auth/store"
)

const (
	challengeKeyPrefix = "otp:challenge:"
	cooldownKeyPrefix  = "otp:cooldown:"

	// maxTxRetries bounds the optimistic WATCH loop under contention.
	maxTxRetries = 4
)

// challengeRecord is the stored wire form of a domain.Challenge minus
// the account id (which lives in the key).
type challengeRecord struct {
	CodeHash  string    `json:"code_hash"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ChallengeStore struct {
	client *redis.Client

	// now is swappable for tests.
	now func() time.Time
}

var _ store.Challenges = (*ChallengeStore)(nil)

func NewChallengeStore(client *redis.Client) *ChallengeStore {
	return &ChallengeStore{client: client, now: time.Now}
}

func challengeKey(accountID string) string { return challengeKeyPrefix + accountID }
func cooldownKey(accountID string) string  { return cooldownKeyPrefix + accountID }

// ReserveCooldown claims the resend slot with SET NX; the key's native
// TTL releases it. Two concurrent issues race on one atomic command, so
// at most one wins.
func (s *ChallengeStore) ReserveCooldown(ctx context.Context, accountID string, until, now time.Time) (bool, error) {
	ttl := until.Sub(now)
	if ttl <= 0 {
		return true, nil
	}
	ok, err := s.client.SetNX(ctx, cooldownKey(accountID), until.Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: reserve cooldown: %w", err)
	}
	return ok, nil
}

func (s *ChallengeStore) ClearCooldown(ctx context.Context, accountID string) error {
	if err := s.client.Del(ctx, cooldownKey(accountID)).Err(); err != nil {
		return fmt.Errorf("redis: clear cooldown: %w", err)
	}
	return nil
}

// PutChallenge overwrites any prior record for the account; the SET
// replaces value and TTL in one command, which is the supersede
// semantics the state machine wants.
func (s *ChallengeStore) PutChallenge(ctx context.Context, ch domain.Challenge) error {
	ttl := ch.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("redis: challenge already expired at write")
	}

	encoded, err := json.Marshal(challengeRecord{
		CodeHash:  ch.CodeHash,
		Attempts:  ch.Attempts,
		CreatedAt: ch.CreatedAt,
		ExpiresAt: ch.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("redis: encode challenge: %w", err)
	}

	if err := s.client.Set(ctx, challengeKey(ch.AccountID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("redis: put challenge: %w", err)
	}
	return nil
}

func (s *ChallengeStore) GetChallenge(ctx context.Context, accountID string) (domain.Challenge, error) {
	data, err := s.client.Get(ctx, challengeKey(accountID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Challenge{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("redis: get challenge: %w", err)
	}
	return decodeChallenge(accountID, data)
}

// IncrementAttempts runs an optimistic WATCH transaction: if another
// wrong-guess request lands between our read and write, the EXEC fails
// and we retry, so every guess is counted.
func (s *ChallengeStore) IncrementAttempts(ctx context.Context, accountID string) (domain.Challenge, error) {
	key := challengeKey(accountID)

	var updated domain.Challenge
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return store.ErrNotFound
			}
			if err != nil {
				return err
			}

			ch, err := decodeChallenge(accountID, data)
			if err != nil {
				return err
			}
			ch.Attempts++

			encoded, err := json.Marshal(challengeRecord{
				CodeHash:  ch.CodeHash,
				Attempts:  ch.Attempts,
				CreatedAt: ch.CreatedAt,
				ExpiresAt: ch.ExpiresAt,
			})
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, redis.KeepTTL)
				return nil
			})
			if err != nil {
				return err
			}

			updated = ch
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue // contended write, retry
		}
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Challenge{}, store.ErrNotFound
			}
			return domain.Challenge{}, fmt.Errorf("redis: increment attempts: %w", err)
		}
		return updated, nil
	}

	return domain.Challenge{}, fmt.Errorf("redis: increment attempts: transaction contention after %d retries", maxTxRetries)
}

func (s *ChallengeStore) DeleteChallenge(ctx context.Context, accountID string) error {
	if err := s.client.Del(ctx, challengeKey(accountID)).Err(); err != nil {
		return fmt.Errorf("redis: delete challenge: %w", err)
	}
	return nil
}

// DeleteExpiredChallenges is a no-op: redis expires keys natively.
func (s *ChallengeStore) DeleteExpiredChallenges(ctx context.Context, now time.Time) error {
	return nil
}

func (s *ChallengeStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func decodeChallenge(accountID string, data []byte) (domain.Challenge, error) {
	var rec challengeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Challenge{}, fmt.Errorf("redis: decode challenge: %w", err)
	}
	return domain.Challenge{
		AccountID: accountID,
		CodeHash:  rec.CodeHash,
		Attempts:  rec.Attempts,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}
