package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants. These provide sensible security defaults
// but are overridden from configuration per-service.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	// Short-lived so a stolen token has a small window.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	// Longer-lived for user convenience; rotation bounds the blast radius.
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// Claims are the access-token claims. The token is a self-contained
// assertion of {account, role, expiry}; nothing here requires a store
// lookup to validate.
type Claims struct {
	jwt.RegisteredClaims

	// SID is the session id the token was minted under. It stays stable
	// across refreshes of the same device login.
	SID string `json:"sid,omitempty"`

	// Role is the platform role ("volunteer", "organizer", "admin").
	Role string `json:"role,omitempty"`

	// Email is the account email, mainly for display and debugging.
	Email string `json:"email,omitempty"`
}

// NewAccessClaims builds minimally-correct claims for an account.
func NewAccessClaims(
	subject, sid, role, email string,
	issuer string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		SID:   sid,
		Role:  role,
		Email: email,
	}
}

// AccountID returns the subject claim under its domain name.
func (c *Claims) AccountID() string { return c.Subject }

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
