package domain

import "time"

// TokenPair is what a successful verification or rotation returns: the
// short-lived signed access token and the long-lived opaque refresh
// token. The raw refresh token exists only in this struct and in the
// client's cookie; the store keeps a keyed hash.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}
