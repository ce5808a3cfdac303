package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"time"

	"github.com/zipfood/reset-api/internal/models"
	"github.com/zipfood/reset-api/internal/phone"
	"github.com/zipfood/reset-api/internal/ratelimit"
	pkglogger "github.com/zipfood/reset-api/pkg/logger"
)

// AccountStore is the slice of the account repository the verification
// service needs.
type AccountStore interface {
	GetByPhone(ctx context.Context, phone string) (*models.Account, error)
	SetVerificationCode(ctx context.Context, accountID, code string, expiresAt time.Time) error
	ClearVerificationCode(ctx context.Context, accountID string) error
}

// SendLimiter is the per-phone send throttle.
type SendLimiter interface {
	Allow(ctx context.Context, phone string) bool
	Stats(ctx context.Context, phone string) ratelimit.Stats
	ClearLimit(ctx context.Context, phone string) error
}

// Result is the structured outcome of a verification operation. Expected
// failures never surface as Go errors; callers branch on Success and show
// Message to the user.
type Result struct {
	Success   bool
	Message   string
	DevCode   string // populated by RequestCode outside production only
	AccountID string // populated by a successful VerifyCode
}

// User-facing messages. One generic message covers wrong, expired-and-gone
// and already-used codes so the response does not reveal which applies.
const (
	MsgInvalidPhone  = "Invalid phone number. Use the format: (11) 98765-4321"
	MsgRateLimited   = "Too many attempts. Try again in 1 hour."
	MsgNoAccount     = "No account found with this phone number."
	MsgSendFailed    = "Could not send the SMS. Please try again."
	MsgCodeSent      = "Verification code sent!"
	MsgCodeMalformed = "Code must be 6 digits."
	MsgCodeExpired   = "Code expired"
	MsgCodeVerified  = "Code verified successfully!"
	MsgCodeInvalid   = "Invalid, expired or already used code."
	MsgInternalError = "Internal error. Please try again."
)

var codeRe = regexp.MustCompile(`^\d{6}$`)

const smsTemplate = "ZipFood: your password reset code is %s. It expires in 15 minutes. Do not share this code."

// VerificationService issues and checks SMS password-reset codes.
type VerificationService struct {
	accounts   AccountStore
	limiter    SendLimiter
	sender     SMSSender
	fallback   CodeStore
	logger     *slog.Logger
	codeExpiry time.Duration
	production bool
	now        func() time.Time
}

// NewVerificationService wires the orchestrator. fallback receives codes
// when the account row cannot be written, so the flow still completes while
// the database is degraded.
func NewVerificationService(
	accounts AccountStore,
	limiter SendLimiter,
	sender SMSSender,
	fallback CodeStore,
	logger *slog.Logger,
	codeExpiry time.Duration,
	production bool,
) *VerificationService {
	return &VerificationService{
		accounts:   accounts,
		limiter:    limiter,
		sender:     sender,
		fallback:   fallback,
		logger:     logger,
		codeExpiry: codeExpiry,
		production: production,
		now:        time.Now,
	}
}

// SetClock overrides the time source for expiry tests.
func (s *VerificationService) SetClock(now func() time.Time) {
	s.now = now
}

// RequestCode issues a 6-digit code for the account matching the phone and
// dispatches it via SMS. Issuing overwrites any previous code, so only the
// most recently sent code can verify.
func (s *VerificationService) RequestCode(ctx context.Context, rawPhone string) Result {
	normalized, ok := phone.Normalize(rawPhone)
	if !ok {
		return Result{Message: MsgInvalidPhone}
	}

	if !s.limiter.Allow(ctx, normalized) {
		return Result{Message: MsgRateLimited}
	}

	account, err := s.findAccount(ctx, rawPhone, normalized)
	if errors.Is(err, models.ErrNotFound) {
		// Deliberate enumeration trade-off: a consumer app tells the user
		// outright, instead of pretending a code was sent.
		return Result{Message: MsgNoAccount}
	}
	if err != nil {
		s.logger.Error("account lookup failed", slog.String("phone", pkglogger.SanitizedPhone(normalized)), slog.Any("error", err))
		return Result{Message: MsgInternalError}
	}

	code, err := generateCode()
	if err != nil {
		s.logger.Error("code generation failed", slog.Any("error", err))
		return Result{Message: MsgInternalError}
	}
	expiresAt := s.now().Add(s.codeExpiry)

	if err := s.accounts.SetVerificationCode(ctx, account.ID, code, expiresAt); err != nil {
		s.logger.Error("failed to persist verification code, using fallback store",
			slog.String("account_id", account.ID),
			slog.Any("error", err))

		fallbackCode := &models.VerificationCode{Code: code, AccountID: account.ID, ExpiresAt: expiresAt}
		if err := s.fallback.Set(ctx, normalized, fallbackCode); err != nil {
			s.logger.Error("fallback code store write failed", slog.Any("error", err))
			return Result{Message: MsgInternalError}
		}
	}

	if !s.sender.Send(ctx, normalized, fmt.Sprintf(smsTemplate, code)) {
		// The stored code stays valid; a resend overwrites it rather than
		// duplicating the send.
		return Result{Message: MsgSendFailed}
	}

	s.logger.Info("verification code issued",
		slog.String("account_id", account.ID),
		slog.String("phone", pkglogger.SanitizedPhone(normalized)),
		slog.Time("expires_at", expiresAt))

	result := Result{Success: true, Message: MsgCodeSent}
	if !s.production {
		result.DevCode = code
	}
	return result
}

// VerifyCode checks a submitted code against the stored one. A matching,
// unexpired code is consumed: verifying the same code twice succeeds only
// the first time.
func (s *VerificationService) VerifyCode(ctx context.Context, rawPhone, code string) Result {
	normalized, ok := phone.Normalize(rawPhone)
	if !ok {
		return Result{Message: MsgInvalidPhone}
	}

	if !codeRe.MatchString(code) {
		return Result{Message: MsgCodeMalformed}
	}

	account, err := s.findAccount(ctx, rawPhone, normalized)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("account lookup failed during verification",
			slog.String("phone", pkglogger.SanitizedPhone(normalized)), slog.Any("error", err))
	}

	if err == nil && account.HasPendingCode() && *account.VerificationCode == code {
		if account.VerificationExpires != nil && s.now().After(*account.VerificationExpires) {
			if err := s.accounts.ClearVerificationCode(ctx, account.ID); err != nil {
				s.logger.Error("failed to clear expired code", slog.Any("error", err))
			}
			return Result{Message: MsgCodeExpired}
		}

		if err := s.accounts.ClearVerificationCode(ctx, account.ID); err != nil {
			s.logger.Error("failed to consume verification code", slog.Any("error", err))
			return Result{Message: MsgInternalError}
		}

		s.logger.Info("verification code consumed", slog.String("account_id", account.ID))
		return Result{Success: true, Message: MsgCodeVerified, AccountID: account.ID}
	}

	// Not on the account row: check the fallback store.
	stored, err := s.fallback.Get(ctx, normalized)
	if err != nil {
		s.logger.Error("fallback code store read failed", slog.Any("error", err))
	}
	if stored != nil && stored.Matches(code) {
		if stored.IsExpired(s.now()) {
			_ = s.fallback.Delete(ctx, normalized)
			return Result{Message: MsgCodeExpired}
		}

		if err := s.fallback.Delete(ctx, normalized); err != nil {
			s.logger.Error("failed to consume fallback code", slog.Any("error", err))
			return Result{Message: MsgInternalError}
		}

		s.logger.Info("fallback verification code consumed", slog.String("account_id", stored.AccountID))
		return Result{Success: true, Message: MsgCodeVerified, AccountID: stored.AccountID}
	}

	return Result{Message: MsgCodeInvalid}
}

// ClearCode removes any stored code for the phone, from both locations.
// Best effort; used after a completed reset.
func (s *VerificationService) ClearCode(ctx context.Context, rawPhone string) {
	normalized, ok := phone.Normalize(rawPhone)
	if !ok {
		return
	}

	if account, err := s.findAccount(ctx, rawPhone, normalized); err == nil {
		if err := s.accounts.ClearVerificationCode(ctx, account.ID); err != nil {
			s.logger.Error("failed to clear verification code", slog.Any("error", err))
		}
	}

	if err := s.fallback.Delete(ctx, normalized); err != nil {
		s.logger.Error("failed to clear fallback code", slog.Any("error", err))
	}
}

// RateLimitStats reports the remaining sends for a phone. The second return
// value is false when the phone does not normalize.
func (s *VerificationService) RateLimitStats(ctx context.Context, rawPhone string) (ratelimit.Stats, bool) {
	normalized, ok := phone.Normalize(rawPhone)
	if !ok {
		return ratelimit.Stats{}, false
	}
	return s.limiter.Stats(ctx, normalized), true
}

// ClearRateLimit is the administrative escape hatch for a throttled phone.
func (s *VerificationService) ClearRateLimit(ctx context.Context, rawPhone string) error {
	normalized, ok := phone.Normalize(rawPhone)
	if !ok {
		return models.ErrBadRequest
	}
	return s.limiter.ClearLimit(ctx, normalized)
}

// findAccount tries the raw input first, then the normalized form. Legacy
// rows may store phones exactly as typed at signup; new rows are always
// normalized.
func (s *VerificationService) findAccount(ctx context.Context, rawPhone, normalized string) (*models.Account, error) {
	account, err := s.accounts.GetByPhone(ctx, rawPhone)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	return s.accounts.GetByPhone(ctx, normalized)
}

// generateCode draws a uniformly random 6-digit code (100000..999999).
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
