package resetflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Outcome is the structured result of a reset API call. Expected failures
// come back with Success false and a user-facing message; transport
// problems surface as Go errors instead.
type Outcome struct {
	Success    bool
	Message    string
	DevCode    string
	AccountID  string
	ResetToken string
}

// RateLimitSnapshot mirrors the server's remaining-sends report
type RateLimitSnapshot struct {
	Remaining int   `json:"remaining"`
	ResetTime int64 `json:"reset_time"`
	CanSend   bool  `json:"can_send"`
}

// Client is the server boundary of the flow
type Client interface {
	RequestCode(ctx context.Context, phone string) (Outcome, error)
	VerifyCode(ctx context.Context, phone, code string) (Outcome, error)
	ResetPassword(ctx context.Context, phone, code, newPassword string) (Outcome, error)
	RateLimitStatus(ctx context.Context, phone string) (RateLimitSnapshot, error)
}

// HTTPClient speaks the reset API over HTTP
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the API at baseURL
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPClient) RequestCode(ctx context.Context, phone string) (Outcome, error) {
	var resp struct {
		Message         string `json:"message"`
		DevelopmentCode string `json:"development_code"`
	}
	success, errMessage, err := c.call(ctx, http.MethodPost, "/auth/password-reset",
		map[string]string{"phone": phone}, &resp)
	if err != nil {
		return Outcome{}, err
	}
	if !success {
		return Outcome{Message: errMessage}, nil
	}
	return Outcome{Success: true, Message: resp.Message, DevCode: resp.DevelopmentCode}, nil
}

func (c *HTTPClient) VerifyCode(ctx context.Context, phone, code string) (Outcome, error) {
	var resp struct {
		Message    string `json:"message"`
		AccountID  string `json:"account_id"`
		ResetToken string `json:"reset_token"`
		Verified   bool   `json:"verified"`
	}
	success, errMessage, err := c.call(ctx, http.MethodPost, "/auth/verify-sms",
		map[string]string{"phone": phone, "code": code}, &resp)
	if err != nil {
		return Outcome{}, err
	}
	if !success {
		return Outcome{Message: errMessage}, nil
	}
	return Outcome{
		Success:    resp.Verified,
		Message:    resp.Message,
		AccountID:  resp.AccountID,
		ResetToken: resp.ResetToken,
	}, nil
}

func (c *HTTPClient) ResetPassword(ctx context.Context, phone, code, newPassword string) (Outcome, error) {
	var resp struct {
		Message string `json:"message"`
	}
	success, errMessage, err := c.call(ctx, http.MethodPut, "/auth/password-reset",
		map[string]string{"phone": phone, "code": code, "new_password": newPassword}, &resp)
	if err != nil {
		return Outcome{}, err
	}
	if !success {
		return Outcome{Message: errMessage}, nil
	}
	return Outcome{Success: true, Message: resp.Message}, nil
}

func (c *HTTPClient) RateLimitStatus(ctx context.Context, phone string) (RateLimitSnapshot, error) {
	endpoint := c.baseURL + "/auth/verify-sms/rate-limit?phone=" + url.QueryEscape(phone)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return RateLimitSnapshot{}, err
	}

	httpResp, err := c.client.Do(req)
	if err != nil {
		return RateLimitSnapshot{}, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return RateLimitSnapshot{}, fmt.Errorf("rate-limit status: unexpected status %d", httpResp.StatusCode)
	}

	var snapshot RateLimitSnapshot
	if err := json.NewDecoder(httpResp.Body).Decode(&snapshot); err != nil {
		return RateLimitSnapshot{}, err
	}
	return snapshot, nil
}

// call POSTs/PUTs a JSON body and decodes the response. A non-2xx status
// with a parseable error envelope is an expected failure, not a Go error.
func (c *HTTPClient) call(ctx context.Context, method, path string, body, out any) (bool, string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return false, "", err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return false, "", err
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(req)
	if err != nil {
		return false, "", err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 200 && httpResp.StatusCode < 300 {
		if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
			return false, "", err
		}
		return true, "", nil
	}

	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&envelope); err != nil || envelope.Message == "" {
		return false, "", fmt.Errorf("%s %s: unexpected status %d", method, path, httpResp.StatusCode)
	}
	return false, envelope.Message, nil
}
