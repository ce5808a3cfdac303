package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/zipfood/reset-api/internal/ratelimit"
	"github.com/zipfood/reset-api/internal/services"
	pkghttp "github.com/zipfood/reset-api/pkg/http"
)

// VerificationServiceInterface defines the interface for the SMS verification flow
type VerificationServiceInterface interface {
	RequestCode(ctx context.Context, rawPhone string) services.Result
	VerifyCode(ctx context.Context, rawPhone, code string) services.Result
	RateLimitStats(ctx context.Context, rawPhone string) (ratelimit.Stats, bool)
}

// AccountServiceInterface defines the interface for completing a reset
type AccountServiceInterface interface {
	ResetPassword(ctx context.Context, rawPhone, code, newPassword string) services.Result
	ResetPasswordWithToken(ctx context.Context, resetToken, newPassword string) services.Result
}

// TokenIssuer mints the short-lived token returned by a successful verification
type TokenIssuer interface {
	GenerateResetToken(accountID, phone string) (string, error)
}

// ResetHandler handles the password-reset HTTP flow
type ResetHandler struct {
	verification VerificationServiceInterface
	accounts     AccountServiceInterface
	tokens       TokenIssuer
}

// NewResetHandler creates a new ResetHandler
func NewResetHandler(verification VerificationServiceInterface, accounts AccountServiceInterface, tokens TokenIssuer) *ResetHandler {
	return &ResetHandler{
		verification: verification,
		accounts:     accounts,
		tokens:       tokens,
	}
}

// Request DTOs

// RequestCodeRequest represents the request body for requesting a reset code
type RequestCodeRequest struct {
	Phone string `json:"phone" validate:"required,max=32"`
}

// VerifyCodeRequest represents the request body for verifying a reset code
type VerifyCodeRequest struct {
	Phone string `json:"phone" validate:"required,max=32"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// ResetPasswordRequest represents the request body for completing a reset.
// Either phone+code or a reset token from a prior verification.
type ResetPasswordRequest struct {
	Phone       string `json:"phone" validate:"omitempty,max=32"`
	Code        string `json:"code" validate:"omitempty,len=6,numeric"`
	ResetToken  string `json:"reset_token" validate:"omitempty"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=128"`
}

// Response DTOs

// RequestCodeResponse is returned when a reset code was dispatched
type RequestCodeResponse struct {
	Message         string `json:"message"`
	DevelopmentCode string `json:"development_code,omitempty"`
}

// VerifyCodeResponse is returned on a successful verification
type VerifyCodeResponse struct {
	Message    string `json:"message"`
	AccountID  string `json:"account_id"`
	ResetToken string `json:"reset_token,omitempty"`
	Verified   bool   `json:"verified"`
}

// RateLimitResponse reports the remaining send budget for a phone
type RateLimitResponse struct {
	Remaining int    `json:"remaining"`
	ResetTime int64  `json:"reset_time"`
	CanSend   bool   `json:"can_send"`
	Message   string `json:"message,omitempty"`
}

// MessageResponse is a plain message envelope
type MessageResponse struct {
	Message string `json:"message"`
}

// RequestCode handles a reset code request
// @Summary Request a password-reset code via SMS
// @Accept json
// @Param request body RequestCodeRequest true "Request code request"
// @Produce json
// @Success 200 {object} RequestCodeResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 429 {object} pkghttp.ErrorResponse
// @Router /auth/password-reset [post]
func (h *ResetHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req RequestCodeRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result := h.verification.RequestCode(r.Context(), req.Phone)
	if !result.Success {
		writeResultError(w, result)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, RequestCodeResponse{
		Message:         result.Message,
		DevelopmentCode: result.DevCode,
	})
}

// VerifyCode handles code verification. A valid code is consumed and a
// short-lived reset token is issued for the password-change step.
// @Summary Verify a password-reset code
// @Accept json
// @Param request body VerifyCodeRequest true "Verify code request"
// @Produce json
// @Success 200 {object} VerifyCodeResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Router /auth/verify-sms [post]
func (h *ResetHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result := h.verification.VerifyCode(r.Context(), req.Phone, req.Code)
	if !result.Success {
		writeResultError(w, result)
		return
	}

	resp := VerifyCodeResponse{
		Message:   result.Message,
		AccountID: result.AccountID,
		Verified:  true,
	}

	if result.AccountID != "" {
		token, err := h.tokens.GenerateResetToken(result.AccountID, req.Phone)
		if err != nil {
			pkghttp.WriteInternalError(w, "Internal server error")
			return
		}
		resp.ResetToken = token
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// RateLimit reports the remaining reset-code sends for a phone number
// @Summary Check the reset-code rate limit for a phone
// @Param phone query string true "Phone number"
// @Produce json
// @Success 200 {object} RateLimitResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Router /auth/verify-sms/rate-limit [get]
func (h *ResetHandler) RateLimit(w http.ResponseWriter, r *http.Request) {
	rawPhone := r.URL.Query().Get("phone")
	if rawPhone == "" {
		pkghttp.WriteBadRequest(w, "Missing phone parameter")
		return
	}

	stats, ok := h.verification.RateLimitStats(r.Context(), rawPhone)
	if !ok {
		pkghttp.WriteBadRequest(w, services.MsgInvalidPhone)
		return
	}

	resp := RateLimitResponse{
		Remaining: stats.Remaining,
		CanSend:   stats.Remaining > 0,
	}
	if !stats.ResetAt.IsZero() {
		resp.ResetTime = stats.ResetAt.Unix()
	}
	if !resp.CanSend {
		resp.Message = services.MsgRateLimited
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// ResetPassword completes the flow: it re-verifies the code (or validates a
// reset token) and updates the account password.
// @Summary Complete a password reset
// @Accept json
// @Param request body ResetPasswordRequest true "Reset password request"
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Router /auth/password-reset [put]
func (h *ResetHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	var result services.Result
	switch {
	case req.ResetToken != "":
		result = h.accounts.ResetPasswordWithToken(r.Context(), req.ResetToken, req.NewPassword)
	case req.Phone != "" && req.Code != "":
		result = h.accounts.ResetPassword(r.Context(), req.Phone, req.Code, req.NewPassword)
	default:
		pkghttp.WriteBadRequest(w, "Provide phone and code, or a reset token")
		return
	}

	if !result.Success {
		writeResultError(w, result)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: result.Message})
}

// writeResultError maps a failed service result to an HTTP status
func writeResultError(w http.ResponseWriter, result services.Result) {
	switch result.Message {
	case services.MsgRateLimited:
		pkghttp.WriteTooManyRequests(w, result.Message)
	case services.MsgInternalError:
		pkghttp.WriteInternalError(w, result.Message)
	case services.MsgSendFailed:
		pkghttp.WriteError(w, http.StatusBadGateway, "bad_gateway", result.Message)
	default:
		pkghttp.WriteBadRequest(w, result.Message)
	}
}
