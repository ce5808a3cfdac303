package services

import (
	"context"
	"errors"
	"log/slog"

	internalauth "github.com/zipfood/reset-api/internal/auth"
	"github.com/zipfood/reset-api/internal/models"
	"github.com/zipfood/reset-api/internal/phone"
	pkgauth "github.com/zipfood/reset-api/pkg/auth"
)

// AccountUpdater is the slice of the account repository the account service needs.
type AccountUpdater interface {
	GetByPhone(ctx context.Context, phone string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	UpdatePassword(ctx context.Context, accountID, passwordHash string) error
}

// CodeVerifier is implemented by the verification service.
type CodeVerifier interface {
	VerifyCode(ctx context.Context, phone, code string) Result
	ClearCode(ctx context.Context, phone string)
}

// Notifier delivers the post-reset security notification. Best effort.
type Notifier interface {
	PasswordChanged(ctx context.Context, email, name string) error
}

// AuthResponse is returned by a successful login.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	AccountID   string `json:"account_id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
}

const (
	MsgPasswordTooShort = "New password must be at least 6 characters."
	MsgPasswordUpdated  = "Password reset successfully!"
	MsgLoginFailed      = "Invalid phone number or password."
)

// AccountService completes password resets and signs accounts in.
type AccountService struct {
	accounts AccountUpdater
	verifier CodeVerifier
	tokens   *internalauth.TokenManager
	notifier Notifier
	logger   *slog.Logger
}

// NewAccountService wires the account operations. notifier may be nil when
// no email channel is configured.
func NewAccountService(
	accounts AccountUpdater,
	verifier CodeVerifier,
	tokens *internalauth.TokenManager,
	notifier Notifier,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		verifier: verifier,
		tokens:   tokens,
		notifier: notifier,
		logger:   logger,
	}
}

// ResetPassword re-verifies the code (consuming it) and updates the account
// password. Re-verification is deliberate: the endpoint proves possession of
// the code at the moment of the password change, even if a verify call
// already happened.
func (s *AccountService) ResetPassword(ctx context.Context, rawPhone, code, newPassword string) Result {
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return Result{Message: MsgPasswordTooShort}
	}

	verification := s.verifier.VerifyCode(ctx, rawPhone, code)
	if !verification.Success {
		return Result{Message: verification.Message}
	}

	return s.completeReset(ctx, verification.AccountID, rawPhone, newPassword)
}

// ResetPasswordWithToken updates the password for the holder of a valid
// reset token, issued by a prior successful verification. The code was
// consumed when the token was minted, so no second SMS round trip happens.
func (s *AccountService) ResetPasswordWithToken(ctx context.Context, resetToken, newPassword string) Result {
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return Result{Message: MsgPasswordTooShort}
	}

	claims, err := s.tokens.ValidateToken(resetToken, models.TokenTypeReset)
	if err != nil {
		return Result{Message: MsgCodeInvalid}
	}

	return s.completeReset(ctx, claims.AccountID, claims.Phone, newPassword)
}

func (s *AccountService) completeReset(ctx context.Context, accountID, rawPhone, newPassword string) Result {
	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.Any("error", err))
		return Result{Message: MsgInternalError}
	}

	if err := s.accounts.UpdatePassword(ctx, accountID, hash); err != nil {
		s.logger.Error("failed to update password",
			slog.String("account_id", accountID),
			slog.Any("error", err))
		return Result{Message: MsgInternalError}
	}

	// Any leftover code state is stale after a completed reset.
	s.verifier.ClearCode(ctx, rawPhone)

	s.logger.Info("password reset completed", slog.String("account_id", accountID))

	s.sendChangedNotification(ctx, accountID)

	return Result{Success: true, Message: MsgPasswordUpdated, AccountID: accountID}
}

// sendChangedNotification emails the account, when it has an address and a
// notifier is configured. Failures are logged and swallowed: the reset
// itself already succeeded.
func (s *AccountService) sendChangedNotification(ctx context.Context, accountID string) {
	if s.notifier == nil {
		return
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil || account.Email == "" {
		return
	}

	if err := s.notifier.PasswordChanged(ctx, account.Email, account.Name); err != nil {
		s.logger.Error("failed to send password-changed notification",
			slog.String("account_id", accountID),
			slog.Any("error", err))
	}
}

// Login authenticates by phone and password and returns an access token.
func (s *AccountService) Login(ctx context.Context, rawPhone, password string) (*AuthResponse, error) {
	account, err := s.lookupByPhone(ctx, rawPhone)
	if err != nil {
		return nil, models.ErrUnauthorized
	}

	if account.PasswordHash == "" {
		return nil, models.ErrUnauthorized
	}
	if err := pkgauth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, models.ErrUnauthorized
	}

	normalized, _ := phone.Normalize(rawPhone)
	token, err := s.tokens.GenerateAccessToken(account.ID, normalized)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   s.tokens.AccessTokenExpiry(),
		AccountID:   account.ID,
		Name:        account.Name,
		Role:        account.Role,
	}, nil
}

func (s *AccountService) lookupByPhone(ctx context.Context, rawPhone string) (*models.Account, error) {
	account, err := s.accounts.GetByPhone(ctx, rawPhone)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	normalized, ok := phone.Normalize(rawPhone)
	if !ok {
		return nil, models.ErrNotFound
	}
	return s.accounts.GetByPhone(ctx, normalized)
}
