package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/voluntree/voluntree/internal/auth/domain"
)

// challengesRepo is the durable challenge-store variant. Rows are keyed
// by account id (the at-most-one-live-challenge invariant falls out of
// the primary key) and expired rows are swept by housekeeping.
//
// Unlike the other repos this one always runs against the root *sql.DB:
// its per-account atomicity comes from single conditional statements,
// not from wrapping transactions, so it stays usable behind the same
// interface as the redis variant.
type challengesRepo struct {
	db dbtx
}

// ReserveCooldown claims the cooldown slot with one conditional upsert.
// Two concurrent issues for the same account cannot both win: sqlite
// serializes writers, and the WHERE clause only lets the update through
// once the previous reservation has lapsed.
func (r *challengesRepo) ReserveCooldown(ctx context.Context, accountID string, until, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO challenge_cooldowns (account_id, cooldown_until)
		VALUES (?, ?)
		ON CONFLICT(account_id) DO UPDATE SET cooldown_until = excluded.cooldown_until
		WHERE challenge_cooldowns.cooldown_until <= ?`,
		accountID, until.UTC(), now.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: reserve cooldown: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: reserve cooldown: %w", err)
	}
	return n > 0, nil
}

func (r *challengesRepo) ClearCooldown(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM challenge_cooldowns WHERE account_id = ?`, accountID)
	if err != nil {
		return fmt.Errorf("sqlite: clear cooldown: %w", err)
	}
	return nil
}

func (r *challengesRepo) PutChallenge(ctx context.Context, ch domain.Challenge) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO challenges (account_id, code_hash, attempts, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			code_hash = excluded.code_hash,
			attempts = excluded.attempts,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		ch.AccountID, ch.CodeHash, ch.Attempts, ch.CreatedAt.UTC(), ch.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: put challenge: %w", err)
	}
	return nil
}

func (r *challengesRepo) GetChallenge(ctx context.Context, accountID string) (domain.Challenge, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT account_id, code_hash, attempts, created_at, expires_at
		FROM challenges WHERE account_id = ?`,
		accountID,
	)

	var ch domain.Challenge
	if err := row.Scan(&ch.AccountID, &ch.CodeHash, &ch.Attempts, &ch.CreatedAt, &ch.ExpiresAt); err != nil {
		return domain.Challenge{}, mapNotFound(err)
	}
	return ch, nil
}

// IncrementAttempts bumps the counter in one statement so two
// concurrent wrong guesses are both counted.
func (r *challengesRepo) IncrementAttempts(ctx context.Context, accountID string) (domain.Challenge, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE challenges SET attempts = attempts + 1
		WHERE account_id = ?
		RETURNING account_id, code_hash, attempts, created_at, expires_at`,
		accountID,
	)

	var ch domain.Challenge
	if err := row.Scan(&ch.AccountID, &ch.CodeHash, &ch.Attempts, &ch.CreatedAt, &ch.ExpiresAt); err != nil {
		return domain.Challenge{}, mapNotFound(err)
	}
	return ch, nil
}

func (r *challengesRepo) DeleteChallenge(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM challenges WHERE account_id = ?`, accountID)
	if err != nil {
		return fmt.Errorf("sqlite: delete challenge: %w", err)
	}
	return nil
}

func (r *challengesRepo) DeleteExpiredChallenges(ctx context.Context, now time.Time) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM challenges WHERE expires_at <= ?`, now.UTC()); err != nil {
		return fmt.Errorf("sqlite: delete expired challenges: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM challenge_cooldowns WHERE cooldown_until <= ?`, now.UTC()); err != nil {
		return fmt.Errorf("sqlite: delete expired cooldowns: %w", err)
	}
	return nil
}

func (r *challengesRepo) Ping(ctx context.Context) error {
	return r.db.QueryRowContext(ctx, `SELECT 1`).Err()
}
