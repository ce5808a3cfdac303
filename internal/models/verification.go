package models

import (
	"time"
)

// VerificationCode is an issued password-reset code. At most one is active
// per account: issuing a new one overwrites the previous, so only the most
// recently sent code can ever verify.
type VerificationCode struct {
	Code      string
	AccountID string
	ExpiresAt time.Time
}

// IsExpired checks the code against the given instant.
func (v *VerificationCode) IsExpired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}

// Matches compares a submitted code against the stored one.
func (v *VerificationCode) Matches(code string) bool {
	return v.Code != "" && v.Code == code
}
