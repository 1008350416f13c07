package cache

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrStoreUnavailable wraps every backend failure, so callers can tell a
	// broken store from an empty one.
	ErrStoreUnavailable = errors.New("cache store unavailable")
)

// Store is the key-value persistence collaborator the cache client is built
// on. Get reports found=false for a missing key; that is not an error.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps records in process memory. Used in development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	// FailWith, when set, is returned by every operation.
	FailWith error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string][]byte{}}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return nil, false, errors.Wrap(ErrStoreUnavailable, s.FailWith.Error())
	}
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return errors.Wrap(ErrStoreUnavailable, s.FailWith.Error())
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	s.data[key] = cp
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return errors.Wrap(ErrStoreUnavailable, s.FailWith.Error())
	}
	delete(s.data, key)
	return nil
}
