package services

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkglogger "github.com/zipfood/reset-api/pkg/logger"
)

// SMSSender dispatches a text message. A false return is non-fatal for the
// reset flow: the stored code stays valid and a resend overwrites it.
type SMSSender interface {
	Send(ctx context.Context, toPhone, body string) bool
}

// TwilioSender sends messages through the Twilio REST API.
type TwilioSender struct {
	accountSID string
	authToken  string
	fromNumber string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewTwilioSender creates a production SMS sender with the given credentials.
func NewTwilioSender(accountSID, authToken, fromNumber string, logger *slog.Logger) *TwilioSender {
	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    "https://api.twilio.com",
		logger:     logger,
	}
}

func (s *TwilioSender) Send(ctx context.Context, toPhone, body string) bool {
	endpoint := s.baseURL + "/2010-04-01/Accounts/" + s.accountSID + "/Messages.json"

	form := url.Values{
		"From": {s.fromNumber},
		"To":   {toPhone},
		"Body": {body},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		s.logger.Error("failed to build SMS request", slog.Any("error", err))
		return false
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("SMS dispatch failed", slog.String("phone", pkglogger.SanitizedPhone(toPhone)), slog.Any("error", err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error("SMS gateway rejected message",
			slog.String("phone", pkglogger.SanitizedPhone(toPhone)),
			slog.Int("status", resp.StatusCode))
		return false
	}

	s.logger.Info("SMS dispatched", slog.String("phone", pkglogger.SanitizedPhone(toPhone)))
	return true
}

// MockSender logs messages instead of sending them. Used outside production
// and whenever Twilio credentials are absent.
type MockSender struct {
	logger *slog.Logger
	delay  time.Duration
}

// NewMockSender creates a sender that logs and simulates gateway latency.
func NewMockSender(logger *slog.Logger) *MockSender {
	return &MockSender{logger: logger, delay: 1 * time.Second}
}

func (s *MockSender) Send(ctx context.Context, toPhone, body string) bool {
	s.logger.Info("mock SMS",
		slog.String("phone", toPhone),
		slog.String("body", body))

	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
	}
	return true
}
