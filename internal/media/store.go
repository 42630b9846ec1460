// Package media is the port onto external blob storage. This service never
// owns photo bytes; it stores opaque references on the check-in record.
package media

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"kidgate/pkg/platform/sentinel"
)

// Store accepts a blob and returns a stable reference URI.
type Store interface {
	Put(ctx context.Context, data []byte, contentType string) (string, error)
}

// InMemoryStore backs development and tests with process-local blobs
// addressed as mem:// URIs.
type InMemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{blobs: make(map[string][]byte)}
}

func (s *InMemoryStore) Put(_ context.Context, data []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := "mem://" + uuid.NewString()
	s.blobs[ref] = append([]byte{}, data...)
	return ref, nil
}

// Get exists for tests that verify the reference round-trips.
func (s *InMemoryStore) Get(_ context.Context, ref string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if blob, ok := s.blobs[ref]; ok {
		return append([]byte{}, blob...), nil
	}
	return nil, sentinel.ErrNotFound
}
