package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/voluntree/voluntree/internal/auth/domain"
	"github.com/voluntree/voluntree/internal/auth/store"
	"github.com/voluntree/voluntree/pkg/cryptox"
	"github.com/voluntree/voluntree/pkg/idx"
)

// CredentialsService verifies email/password pairs and registers new
// accounts. It deliberately tells callers nothing about WHICH check
// failed.
type CredentialsService struct {
	Store store.Store
}

// Verify checks the password for the account behind email and returns
// the account on success. Unknown email, missing password hash, and a
// wrong password all come back as ErrInvalidCredentials.
func (s *CredentialsService) Verify(ctx context.Context, email, password string) (domain.Account, error) {
	acct, err := s.Store.Accounts().GetAccountByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		// Burn a hash anyway so the miss is not observably faster than a
		// wrong password.
		_ = cryptox.VerifyPassword(password, decoyHash())
		return domain.Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("lookup account: %w", err)
	}

	if !acct.HasPassword() {
		return domain.Account{}, ErrInvalidCredentials
	}
	if err := cryptox.VerifyPassword(password, acct.PasswordHash); err != nil {
		return domain.Account{}, ErrInvalidCredentials
	}
	return acct, nil
}

// Register creates a volunteer account. Organizer and admin roles are
// granted elsewhere, never at signup.
func (s *CredentialsService) Register(ctx context.Context, email, name, password string) (domain.Account, error) {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}

	acct := domain.Account{
		ID:           idx.New().String(),
		Email:        NormalizeEmail(email),
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         domain.RoleVolunteer,
	}

	err = s.Store.Accounts().CreateAccount(ctx, acct)
	if errors.Is(err, store.ErrAlreadyExists) {
		return domain.Account{}, ErrEmailTaken
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}
	return acct, nil
}

// NormalizeEmail lower-cases and trims an address so lookups and the
// unique index agree on a canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// decoyHash is a throwaway argon2id hash of a random string, used to
// equalize timing on unknown-email lookups. Computed lazily so the
// pepper path is configured before the first hash.
var decoyHash = sync.OnceValue(func() string {
	h, err := cryptox.HashPassword(cryptox.MustGenerateToken(cryptox.TokenSize128))
	if err != nil {
		panic(err)
	}
	return h
})
