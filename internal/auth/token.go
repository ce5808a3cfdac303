package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/zipfood/reset-api/internal/models"
)

// TokenManager signs and validates the service's JWTs: access tokens for
// login and the short-lived reset token handed out by code verification.
type TokenManager struct {
	secret            string
	accessTokenExpiry time.Duration
	resetTokenExpiry  time.Duration
}

// NewTokenManager creates a TokenManager signing with the given secret.
func NewTokenManager(secret string, accessExpiry, resetExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:            secret,
		accessTokenExpiry: accessExpiry,
		resetTokenExpiry:  resetExpiry,
	}
}

// GenerateAccessToken creates a short-lived access token for a signed-in account.
func (tm *TokenManager) GenerateAccessToken(accountID, phone string) (string, error) {
	return tm.generate(models.TokenTypeAccess, accountID, phone, tm.accessTokenExpiry)
}

// GenerateResetToken creates a token proving the holder completed SMS code
// verification for the account. It lets the password-set call skip a second
// code round trip.
func (tm *TokenManager) GenerateResetToken(accountID, phone string) (string, error) {
	return tm.generate(models.TokenTypeReset, accountID, phone, tm.resetTokenExpiry)
}

func (tm *TokenManager) generate(tokenType, accountID, phone string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &models.TokenClaims{
		Type:      tokenType,
		AccountID: accountID,
		Phone:     phone,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// ValidateToken parses a token and checks its signature, expiry and type.
func (tm *TokenManager) ValidateToken(tokenString, expectedType string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(tm.secret), nil
	})
	if err != nil {
		return nil, models.ErrUnauthorized
	}

	if !token.Valid || claims.Type != expectedType {
		return nil, models.ErrUnauthorized
	}

	return claims, nil
}

// AccessTokenExpiry reports the configured access token lifetime in seconds,
// for the login response body.
func (tm *TokenManager) AccessTokenExpiry() int64 {
	return int64(tm.accessTokenExpiry.Seconds())
}
