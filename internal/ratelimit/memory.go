package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps buckets in a process-local map. With this store the
// effective limit is per instance; deployments that run more than one
// replica should use the Redis store instead.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]Bucket
}

// NewMemoryStore creates an empty in-process bucket store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]Bucket)}
}

func (s *MemoryStore) Get(_ context.Context, phone string) (*Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.buckets[phone]
	if !ok {
		return nil, nil
	}
	copied := bucket
	return &copied, nil
}

func (s *MemoryStore) Put(_ context.Context, phone string, bucket *Bucket, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buckets[phone] = *bucket
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.buckets, phone)
	return nil
}
