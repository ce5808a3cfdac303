package resetflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetAPIStub(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/password-reset", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Phone string `json:"phone"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if req.Phone == "(11) 90000-0000" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{
				"error":   "bad_request",
				"message": "No account found with this phone number.",
			})
			return
		}

		json.NewEncoder(w).Encode(map[string]string{
			"message":          "Code sent via SMS!",
			"development_code": "123456",
		})
	})
	mux.HandleFunc("POST /auth/verify-sms", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"message":     "Code verified successfully!",
			"account_id":  "acc-1",
			"reset_token": "token-1",
			"verified":    true,
		})
	})
	mux.HandleFunc("PUT /auth/password-reset", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"message": "Password reset successfully!"})
	})
	mux.HandleFunc("GET /auth/verify-sms/rate-limit", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"remaining": 2,
			"can_send":  true,
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestHTTPClient_RequestCode(t *testing.T) {
	server := resetAPIStub(t)
	client := NewHTTPClient(server.URL)

	outcome, err := client.RequestCode(context.Background(), "(11) 98765-4321")

	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, "Code sent via SMS!", outcome.Message)
	assert.Equal(t, "123456", outcome.DevCode)
}

func TestHTTPClient_RequestCode_APIFailureIsNotAnError(t *testing.T) {
	server := resetAPIStub(t)
	client := NewHTTPClient(server.URL)

	outcome, err := client.RequestCode(context.Background(), "(11) 90000-0000")

	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Equal(t, "No account found with this phone number.", outcome.Message)
}

func TestHTTPClient_VerifyCode(t *testing.T) {
	server := resetAPIStub(t)
	client := NewHTTPClient(server.URL)

	outcome, err := client.VerifyCode(context.Background(), "(11) 98765-4321", "123456")

	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, "acc-1", outcome.AccountID)
	assert.Equal(t, "token-1", outcome.ResetToken)
}

func TestHTTPClient_ResetPassword(t *testing.T) {
	server := resetAPIStub(t)
	client := NewHTTPClient(server.URL)

	outcome, err := client.ResetPassword(context.Background(), "(11) 98765-4321", "123456", "new-password")

	require.NoError(t, err)
	assert.True(t, outcome.Success)
}

func TestHTTPClient_RateLimitStatus(t *testing.T) {
	server := resetAPIStub(t)
	client := NewHTTPClient(server.URL)

	snapshot, err := client.RateLimitStatus(context.Background(), "+5511987654321")

	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.Remaining)
	assert.True(t, snapshot.CanSend)
}

func TestHTTPClient_TransportError(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:0")

	_, err := client.RequestCode(context.Background(), "(11) 98765-4321")

	assert.Error(t, err)
}
