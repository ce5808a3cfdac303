package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Token type values carried in the "type" claim.
const (
	TokenTypeAccess = "access"
	TokenTypeReset  = "password_reset"
)

// TokenClaims is the claim set for both access tokens and the short-lived
// reset token returned by a successful code verification.
type TokenClaims struct {
	Type      string `json:"type"`
	AccountID string `json:"account_id"`
	Phone     string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}
