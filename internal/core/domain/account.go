package domain

import (
	"crypto/subtle"
	"time"
)

// Account mirrors the persisted representation in the accounts table.
type Account struct {
	ID                 string
	Email              string
	Name               *string
	PasswordHash       string
	ProfilePicture     *string
	RegisteredAt       time.Time
	LastPasswordChange *time.Time
	PendingReset       *PendingReset
}

// PendingReset is an in-flight password reset code attached to an account.
// At most one exists per account; issuing a new one replaces it.
type PendingReset struct {
	Code      string
	ExpiresAt time.Time
}

// Matches reports whether the presented code consumes this reset. It is
// true only when a reset is pending, the code matches exactly and the
// expiry instant has not been reached. Callers learn a single bit; which
// condition failed is not observable.
func (p *PendingReset) Matches(code string, now time.Time) bool {
	if p == nil || code == "" {
		return false
	}
	if !now.Before(p.ExpiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(p.Code), []byte(code)) == 1
}

// PublicProfile is the projection of an account safe to return to clients.
type PublicProfile struct {
	ID             string
	Email          string
	Name           *string
	ProfilePicture *string
	RegisteredAt   time.Time
}

// Public returns the client-facing projection of the account. The password
// hash and any pending reset state never leave the service.
func (a *Account) Public() PublicProfile {
	return PublicProfile{
		ID:             a.ID,
		Email:          a.Email,
		Name:           a.Name,
		ProfilePicture: a.ProfilePicture,
		RegisteredAt:   a.RegisteredAt,
	}
}
