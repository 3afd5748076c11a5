// Package jwtx wraps github.com/golang-jwt/jwt/v5 with the claim shape
// and error taxonomy this service actually uses. Signing is symmetric
// (HS256): tokens are only ever verified by this service, so there is
// no key-distribution problem a public-key scheme would solve.
package jwtx

import "errors"

// Signer mints signed access tokens.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
}

// Verifier validates a token string and returns the claims if legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")

	// ErrWeakSecret rejects signing secrets shorter than the HMAC block
	// would make brute-forceable.
	ErrWeakSecret = errors.New("jwtx: signing secret must be at least 32 bytes")
)
