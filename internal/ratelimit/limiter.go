// Package ratelimit implements the per-phone send limiter for verification
// codes: a fixed window of at most MaxPerWindow sends per phone per hour,
// backed by a pluggable bucket store so multiple instances can share state.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	pkglogger "github.com/zipfood/reset-api/pkg/logger"
)

const (
	// DefaultMaxPerWindow is the maximum number of code sends per phone per window.
	DefaultMaxPerWindow = 5

	// DefaultWindow is the length of the fixed rate-limit window.
	DefaultWindow = 1 * time.Hour
)

// Bucket is the per-phone counter state.
type Bucket struct {
	Count   int       `json:"count"`
	ResetAt time.Time `json:"reset_at"`
}

// Store persists rate-limit buckets keyed by normalized phone number.
type Store interface {
	Get(ctx context.Context, phone string) (*Bucket, error)
	Put(ctx context.Context, phone string, bucket *Bucket, ttl time.Duration) error
	Delete(ctx context.Context, phone string) error
}

// Stats is the read-only view exposed for UI display.
type Stats struct {
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// Config holds rate limiter tunables.
type Config struct {
	MaxPerWindow int
	Window       time.Duration
}

// DefaultConfig returns the limits used in production: 5 sends per hour.
func DefaultConfig() Config {
	return Config{
		MaxPerWindow: DefaultMaxPerWindow,
		Window:       DefaultWindow,
	}
}

// Limiter enforces the per-phone send window.
type Limiter struct {
	store  Store
	config Config
	logger *slog.Logger
	now    func() time.Time
}

// NewLimiter creates a Limiter over the given store.
func NewLimiter(store Store, config Config, logger *slog.Logger) *Limiter {
	if config.MaxPerWindow <= 0 {
		config.MaxPerWindow = DefaultMaxPerWindow
	}
	if config.Window <= 0 {
		config.Window = DefaultWindow
	}
	return &Limiter{
		store:  store,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the time source. Tests use this to advance the window.
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}

// Allow consumes one send attempt for the phone. It returns true when the
// attempt is within the window limit. Store errors fail open: the limiter is
// a UX throttle, not the sole anti-abuse control, and losing it must not
// block legitimate resets.
func (l *Limiter) Allow(ctx context.Context, phone string) bool {
	now := l.now()

	bucket, err := l.store.Get(ctx, phone)
	if err != nil {
		l.logger.Error("rate limit store read failed", slog.Any("error", err))
		return true
	}

	if bucket == nil || now.After(bucket.ResetAt) {
		fresh := &Bucket{Count: 1, ResetAt: now.Add(l.config.Window)}
		if err := l.store.Put(ctx, phone, fresh, l.config.Window); err != nil {
			l.logger.Error("rate limit store write failed", slog.Any("error", err))
		}
		return true
	}

	if bucket.Count >= l.config.MaxPerWindow {
		l.logger.Warn("phone rate limited",
			slog.String("phone", pkglogger.SanitizedPhone(phone)),
			slog.Int("count", bucket.Count),
			slog.Time("reset_at", bucket.ResetAt))
		return false
	}

	bucket.Count++
	if err := l.store.Put(ctx, phone, bucket, time.Until(bucket.ResetAt)); err != nil {
		l.logger.Error("rate limit store write failed", slog.Any("error", err))
	}
	return true
}

// Stats returns the remaining sends and window reset time for a phone.
// A phone with no bucket, or an expired one, reports a full window.
func (l *Limiter) Stats(ctx context.Context, phone string) Stats {
	bucket, err := l.store.Get(ctx, phone)
	if err != nil {
		l.logger.Error("rate limit store read failed", slog.Any("error", err))
		return Stats{Remaining: l.config.MaxPerWindow}
	}

	if bucket == nil || l.now().After(bucket.ResetAt) {
		return Stats{Remaining: l.config.MaxPerWindow}
	}

	remaining := l.config.MaxPerWindow - bucket.Count
	if remaining < 0 {
		remaining = 0
	}
	return Stats{Remaining: remaining, ResetAt: bucket.ResetAt}
}

// ClearLimit drops the bucket for a phone. Administrative escape hatch.
func (l *Limiter) ClearLimit(ctx context.Context, phone string) error {
	return l.store.Delete(ctx, phone)
}
