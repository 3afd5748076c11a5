package store

import (
	"context"
	"errors"
	"time"

	"github.com/voluntree/voluntree/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface for the durable records
// (accounts and sessions). Concrete drivers implement this. It exposes
// sub-repositories to keep concerns tidy and testable.
type Store interface {
	Accounts() Accounts
	Sessions() Sessions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g.,
	// refresh rotation). The caller MUST call Commit() or Rollback().
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, rolling back if fn
	// returns an error and committing otherwise. This is the
	// recommended way to handle transactions.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the store is still reachable.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// CreateAccount inserts a new account (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	CreateAccount(ctx context.Context, a domain.Account) error

	// GetAccountByEmail looks up by normalized (lower-cased) email.
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// GetAccountByID returns an account by id.
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)
}

type Sessions interface {
	// CreateSession stores a new refresh-token lineage.
	CreateSession(ctx context.Context, s domain.Session) error

	// ConsumeSession atomically deletes and returns the live session
	// whose token hash matches and whose expiry is after now. Returns
	// ErrNotFound when the hash is unknown, already consumed, or the
	// session has expired — callers treat all three identically, which
	// is what makes rotation replay-safe.
	ConsumeSession(ctx context.Context, tokenHash string, now time.Time) (domain.Session, error)

	// DeleteSessionByTokenHash removes a session if present. Deleting
	// an absent session is not an error (revocation is idempotent).
	DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error

	// ListSessionsByAccount returns all live lineages for an account,
	// newest first.
	ListSessionsByAccount(ctx context.Context, accountID string) ([]domain.Session, error)

	// DeleteSessionsByAccount removes every lineage for an account.
	DeleteSessionsByAccount(ctx context.Context, accountID string) error

	// DeleteExpiredSessions is housekeeping.
	DeleteExpiredSessions(ctx context.Context, now time.Time) error
}

// Challenges is the pluggable secret store for one-time-code
// challenges, keyed by account id. Two interchangeable drivers exist: a
// durable sqlite table swept by housekeeping, and a redis cache with
// native per-key TTL. Every method is atomic with respect to other
// calls for the same account key; that per-key atomicity is what the
// challenge state machine's correctness rests on.
type Challenges interface {
	// ReserveCooldown atomically claims the right to issue a challenge
	// for the account until the given time. It returns false when an
	// earlier reservation is still in force.
	ReserveCooldown(ctx context.Context, accountID string, until, now time.Time) (bool, error)

	// ClearCooldown releases a reservation, used to roll back a failed
	// issue so the user may retry immediately.
	ClearCooldown(ctx context.Context, accountID string) error

	// PutChallenge writes the challenge, superseding any prior record
	// for the same account.
	PutChallenge(ctx context.Context, ch domain.Challenge) error

	// GetChallenge returns the live challenge or ErrNotFound.
	GetChallenge(ctx context.Context, accountID string) (domain.Challenge, error)

	// IncrementAttempts atomically bumps the attempt counter and
	// returns the updated challenge.
	IncrementAttempts(ctx context.Context, accountID string) (domain.Challenge, error)

	// DeleteChallenge removes the challenge; absent is not an error.
	DeleteChallenge(ctx context.Context, accountID string) error

	// DeleteExpiredChallenges is housekeeping. Drivers with native TTL
	// may implement it as a no-op.
	DeleteExpiredChallenges(ctx context.Context, now time.Time) error

	// Ping verifies the challenge store is reachable.
	Ping(ctx context.Context) error
}
