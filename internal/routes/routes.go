package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/zipfood/reset-api/internal/handlers"
	"github.com/zipfood/reset-api/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	resetHandler *handlers.ResetHandler,
	loginHandler *handlers.LoginHandler,
) {
	authLimit := middleware.DefaultAuthRateLimit()
	codeLimit := middleware.DefaultCodeRequestRateLimit()
	verifyLimit := middleware.DefaultVerifyRateLimit()

	// Password-reset flow. All public; the code itself is the credential.
	router.With(middleware.RateLimitByIP(codeLimit)).Post("/auth/password-reset", resetHandler.RequestCode)
	router.With(middleware.RateLimitByIP(verifyLimit)).Post("/auth/verify-sms", resetHandler.VerifyCode)
	router.Get("/auth/verify-sms/rate-limit", resetHandler.RateLimit)

	router.With(middleware.RateLimitByIP(authLimit)).Put("/auth/password-reset", resetHandler.ResetPassword)
	// Alias kept for clients that POST the completion step.
	router.With(middleware.RateLimitByIP(authLimit)).Post("/auth/reset-password", resetHandler.ResetPassword)

	router.With(middleware.RateLimitByIP(authLimit)).Post("/auth/login", loginHandler.Login)
}
