package domain

import "time"

// Role names are fixed strings owned by the wider platform. The auth
// service only carries them into access-token claims.
const (
	RoleVolunteer = "volunteer"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

// Account is the identity subject. The wider platform owns the rest of
// the profile; this service reads accounts to verify credentials and
// stamp claims.
type Account struct {
	ID           string
	Email        string // unique, stored lower-cased
	Name         string
	PasswordHash string // argon2 encoded; empty for externally-authenticated accounts
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether the account can authenticate with a
// password at all. Externally-authenticated accounts have no hash.
func (a Account) HasPassword() bool { return a.PasswordHash != "" }

// Profile is the public view of an account returned by the HTTP layer.
type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// PublicProfile strips everything a client shouldn't see.
func (a Account) PublicProfile() Profile {
	return Profile{ID: a.ID, Email: a.Email, Name: a.Name, Role: a.Role}
}
