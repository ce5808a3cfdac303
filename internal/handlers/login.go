package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zipfood/reset-api/internal/models"
	"github.com/zipfood/reset-api/internal/services"
	pkghttp "github.com/zipfood/reset-api/pkg/http"
)

// LoginServiceInterface defines the interface for phone/password authentication
type LoginServiceInterface interface {
	Login(ctx context.Context, phone, password string) (*services.AuthResponse, error)
}

// LoginHandler handles sign-in requests
type LoginHandler struct {
	service LoginServiceInterface
}

// NewLoginHandler creates a new LoginHandler
func NewLoginHandler(service LoginServiceInterface) *LoginHandler {
	return &LoginHandler{service: service}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Phone    string `json:"phone" validate:"required,max=32"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates by phone and password
// @Summary Sign in with phone and password
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} services.AuthResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /auth/login [post]
func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.service.Login(r.Context(), req.Phone, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			pkghttp.WriteUnauthorized(w, services.MsgLoginFailed)
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}
