package domain

import "time"

// Challenge is one outstanding one-time-code attempt for an account.
// At most one live challenge exists per account: issuing a new one
// supersedes any prior record. Only the keyed hash of the code is
// stored, never the code itself.
type Challenge struct {
	AccountID string
	CodeHash  string // keyed HMAC-SHA256 fingerprint of account id + code
	Attempts  int
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the challenge is past its TTL at the given time.
func (c Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
