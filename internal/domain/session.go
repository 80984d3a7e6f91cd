package domain

import "time"

// Session is a login session issued by the auth backend.
type Session struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Revoked reports whether the session was signed out or revoked.
func (s *Session) Revoked() bool {
	return s.RevokedAt != nil
}

// ExpiredAt reports whether the session has an expiry at or before now.
// Sessions without an expiry never expire.
func (s *Session) ExpiredAt(now time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}

// User roles.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User is the account behind a session.
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Role             string     `json:"role"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
}

// Confirmed reports whether the user confirmed their email address.
func (u *User) Confirmed() bool {
	return u.EmailConfirmedAt != nil
}
