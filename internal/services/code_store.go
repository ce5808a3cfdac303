package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zipfood/reset-api/internal/models"
)

// CodeStore is the fallback location for verification codes when the account
// row cannot be written. Keys are normalized phone numbers.
type CodeStore interface {
	Set(ctx context.Context, phone string, code *models.VerificationCode) error
	Get(ctx context.Context, phone string) (*models.VerificationCode, error)
	Delete(ctx context.Context, phone string) error
}

// MemoryCodeStore holds fallback codes for the lifetime of the process.
type MemoryCodeStore struct {
	mu    sync.Mutex
	codes map[string]models.VerificationCode
}

func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{codes: make(map[string]models.VerificationCode)}
}

func (s *MemoryCodeStore) Set(_ context.Context, phone string, code *models.VerificationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.codes[phone] = *code
	return nil
}

func (s *MemoryCodeStore) Get(_ context.Context, phone string) (*models.VerificationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, ok := s.codes[phone]
	if !ok {
		return nil, nil
	}
	copied := code
	return &copied, nil
}

func (s *MemoryCodeStore) Delete(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.codes, phone)
	return nil
}

const fallbackCodePrefix = "reset_code:"

// RedisCodeStore shares fallback codes across instances. The key TTL tracks
// the code expiry, so abandoned codes clean themselves up.
type RedisCodeStore struct {
	client *redis.Client
}

func NewRedisCodeStore(client *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{client: client}
}

func (s *RedisCodeStore) Set(ctx context.Context, phone string, code *models.VerificationCode) error {
	raw, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("failed to encode verification code: %w", err)
	}

	ttl := time.Until(code.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Minute
	}

	if err := s.client.Set(ctx, fallbackCodePrefix+phone, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}
	return nil
}

func (s *RedisCodeStore) Get(ctx context.Context, phone string) (*models.VerificationCode, error) {
	raw, err := s.client.Get(ctx, fallbackCodePrefix+phone).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read verification code: %w", err)
	}

	var code models.VerificationCode
	if err := json.Unmarshal(raw, &code); err != nil {
		return nil, fmt.Errorf("invalid verification code format: %w", err)
	}
	return &code, nil
}

func (s *RedisCodeStore) Delete(ctx context.Context, phone string) error {
	if err := s.client.Del(ctx, fallbackCodePrefix+phone).Err(); err != nil {
		return fmt.Errorf("failed to delete verification code: %w", err)
	}
	return nil
}
