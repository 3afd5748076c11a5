package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/voluntree/voluntree/internal/auth/domain"
)

type sessionsRepo struct {
	db dbtx
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, account_id, token_hash, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.AccountID, s.TokenHash, s.CreatedAt.UTC(), s.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: create session: %w", err)
	}
	return nil
}

// ConsumeSession uses a single DELETE ... RETURNING so that of two
// concurrent rotations presenting the same token, exactly one gets the
// row and the other sees not-found.
func (r *sessionsRepo) ConsumeSession(ctx context.Context, tokenHash string, now time.Time) (domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		DELETE FROM sessions
		WHERE token_hash = ? AND expires_at > ?
		RETURNING id, account_id, token_hash, created_at, expires_at`,
		tokenHash, now.UTC(),
	)

	var s domain.Session
	if err := row.Scan(&s.ID, &s.AccountID, &s.TokenHash, &s.CreatedAt, &s.ExpiresAt); err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash)
	if err != nil {
		return fmt.Errorf("sqlite: delete session: %w", err)
	}
	return nil
}

func (r *sessionsRepo) ListSessionsByAccount(ctx context.Context, accountID string) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, token_hash, created_at, expires_at
		FROM sessions
		WHERE account_id = ?
		ORDER BY created_at DESC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.AccountID, &s.TokenHash, &s.CreatedAt, &s.ExpiresAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionsRepo) DeleteSessionsByAccount(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE account_id = ?`, accountID)
	if err != nil {
		return fmt.Errorf("sqlite: delete account sessions: %w", err)
	}
	return nil
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return fmt.Errorf("sqlite: delete expired sessions: %w", err)
	}
	return nil
}
