// Package service holds the business logic between the HTTP layer and
// the stores: credential checks, the one-time-code state machine, and
// the refresh-token session lifecycle.
package service

import "errors"

var (
	// ErrInvalidCredentials covers both unknown email and wrong password
	// so responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailTaken is returned by registration when the address already
	// has an account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrCooldown means a code was issued too recently; the caller must
	// wait before requesting another.
	ErrCooldown = errors.New("code issued too recently")

	// ErrDispatchFailed means the code could not be delivered; the issue
	// was rolled back and the caller may retry immediately.
	ErrDispatchFailed = errors.New("code delivery failed")

	// ErrExpired means the challenge outlived its TTL before a correct
	// code arrived.
	ErrExpired = errors.New("code expired")

	// ErrInvalidCode means the submitted code did not match.
	ErrInvalidCode = errors.New("invalid code")

	// ErrLocked means the attempt ceiling was already reached; the
	// challenge is dead and a fresh one must be issued.
	ErrLocked = errors.New("too many attempts")

	// ErrSessionInvalid covers unknown, expired, consumed, and revoked
	// refresh tokens alike.
	ErrSessionInvalid = errors.New("session invalid")
)
