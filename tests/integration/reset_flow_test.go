package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalauth "github.com/zipfood/reset-api/internal/auth"
	"github.com/zipfood/reset-api/internal/handlers"
	middlewareCustom "github.com/zipfood/reset-api/internal/middleware"
	"github.com/zipfood/reset-api/internal/ratelimit"
	"github.com/zipfood/reset-api/internal/repositories"
	"github.com/zipfood/reset-api/internal/routes"
	"github.com/zipfood/reset-api/internal/services"
	"github.com/zipfood/reset-api/pkg/resetflow"
)

// startResetAPI wires the full stack against the test database and returns
// an HTTP test server.
func startResetAPI(t *testing.T, testDB *TestDB) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	accountRepo := repositories.NewAccountRepository(testDB.DB)
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), ratelimit.DefaultConfig(), logger)
	sender := services.NewMockSender(logger)
	codeStore := services.NewMemoryCodeStore()
	tokenManager := internalauth.NewTokenManager("integration-test-secret-key", 15*time.Minute, 15*time.Minute)

	verificationService := services.NewVerificationService(
		accountRepo, limiter, sender, codeStore, logger, 15*time.Minute, false)
	accountService := services.NewAccountService(accountRepo, verificationService, tokenManager, nil, logger)

	resetHandler := handlers.NewResetHandler(verificationService, accountService, tokenManager)
	loginHandler := handlers.NewLoginHandler(accountService)

	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Use(middlewareCustom.SecureLogger(logger, nil))
	routes.RegisterRoutes(router, resetHandler, loginHandler)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func TestPasswordResetFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	testDB, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer testDB.Teardown(ctx)

	_, err = SeedAccount(ctx, testDB.Pool, "+5511987654321", "ana@example.com", "old-password")
	require.NoError(t, err)

	server := startResetAPI(t, testDB)
	client := resetflow.NewHTTPClient(server.URL)

	// Step 1: request a code for the formatted local number. The seeded
	// row is normalized, so the lookup goes through normalization.
	request, err := client.RequestCode(ctx, "(11) 98765-4321")
	require.NoError(t, err)
	require.True(t, request.Success, "request failed: %s", request.Message)
	require.Len(t, request.DevCode, 6, "dev code expected outside production")

	// A wrong code does not consume the stored one.
	wrong, err := client.VerifyCode(ctx, "(11) 98765-4321", "000000")
	require.NoError(t, err)
	if wrong.Success {
		t.Fatal("wrong code unexpectedly verified")
	}

	// Step 2: verify the real code.
	verify, err := client.VerifyCode(ctx, "(11) 98765-4321", request.DevCode)
	require.NoError(t, err)
	require.True(t, verify.Success, "verify failed: %s", verify.Message)
	assert.NotEmpty(t, verify.AccountID)
	assert.NotEmpty(t, verify.ResetToken)

	// The code was consumed; a second verify must fail.
	replay, err := client.VerifyCode(ctx, "(11) 98765-4321", request.DevCode)
	require.NoError(t, err)
	assert.False(t, replay.Success)

	// Step 3: complete the reset with a fresh code (the completion
	// endpoint re-verifies, and the first code is gone).
	request2, err := client.RequestCode(ctx, "(11) 98765-4321")
	require.NoError(t, err)
	require.True(t, request2.Success)

	reset, err := client.ResetPassword(ctx, "(11) 98765-4321", request2.DevCode, "brand-new-password")
	require.NoError(t, err)
	require.True(t, reset.Success, "reset failed: %s", reset.Message)

	// The old password no longer works, the new one does.
	loginOld := postLogin(t, server.URL, "(11) 98765-4321", "old-password")
	assert.Equal(t, 401, loginOld)

	loginNew := postLogin(t, server.URL, "(11) 98765-4321", "brand-new-password")
	assert.Equal(t, 200, loginNew)
}

// postLogin hits /auth/login and returns the status code
func postLogin(t *testing.T, baseURL, phone, password string) int {
	t.Helper()

	payload, err := json.Marshal(map[string]string{"phone": phone, "password": password})
	require.NoError(t, err)

	resp, err := http.Post(baseURL+"/auth/login", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestPasswordResetFlow_LegacyUnnormalizedRow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	testDB, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer testDB.Teardown(ctx)

	// Historical rows can hold the phone exactly as the user typed it.
	_, err = SeedAccount(ctx, testDB.Pool, "(21) 91234-5678", "rui@example.com", "old-password")
	require.NoError(t, err)

	server := startResetAPI(t, testDB)
	client := resetflow.NewHTTPClient(server.URL)

	request, err := client.RequestCode(ctx, "(21) 91234-5678")
	require.NoError(t, err)
	require.True(t, request.Success, "request failed: %s", request.Message)

	verify, err := client.VerifyCode(ctx, "(21) 91234-5678", request.DevCode)
	require.NoError(t, err)
	assert.True(t, verify.Success, "verify failed: %s", verify.Message)
}
