package domain

import "time"

// Session is one refresh-token lineage. The stored hash is replaced in
// place on every rotation, so the session id stays stable for the life
// of a device login while the presented token changes every refresh.
type Session struct {
	ID        string
	AccountID string
	TokenHash string // keyed fingerprint of the opaque refresh token, never the raw value
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionInfo is the per-device view exposed by the sessions endpoint.
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Current   bool      `json:"current"`
}
