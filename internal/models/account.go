package models

import (
	"time"
)

// Account is the slice of the user record this service touches. The wider
// application owns the rest of the profile; writes here are merge-style and
// never clobber unrelated fields.
type Account struct {
	ID           string
	Phone        string // canonical +55 form for new rows; legacy rows may hold raw input
	Email        string // optional, used for the password-changed notification
	PasswordHash string
	Name         string
	Role         string // "customer", "restaurant", "driver"

	// Active password-reset code, nil when none is pending.
	VerificationCode    *string
	VerificationExpires *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPendingCode reports whether the account holds an unconsumed code,
// expired or not. Expiry is checked at verification time.
func (a *Account) HasPendingCode() bool {
	return a.VerificationCode != nil && *a.VerificationCode != ""
}
