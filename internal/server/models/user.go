package models

import "time"

// UserProfile is the credential record for one email identity.
// LockedUntil is the zero time when the account is not locked.
type UserProfile struct {
	Email          string
	PinHash        string
	IsAdmin        bool
	FailedAttempts int
	LockedUntil    time.Time
	CreatedAt      time.Time
}

// HasPin reports whether enrollment was completed for this profile.
func (u *UserProfile) HasPin() bool {
	return u != nil && u.PinHash != ""
}

// PendingCode is the one outstanding enrollment code for an email.
type PendingCode struct {
	Email     string
	Code      string
	ExpiresAt time.Time
}
