// Package memory is an in-process db.Store for single-node runs and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/canonic/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// Store keeps values in a map guarded by a RWMutex.
type Store struct {
	mu   sync.RWMutex
	data map[string]entry
	now  func() time.Time
}

// NewStore creates an empty in-process store.
func NewStore() *Store {
	return &Store{data: make(map[string]entry), now: time.Now}
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// WaitForReady always succeeds.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// Close drops all values.
func (s *Store) Close() {
	s.mu.Lock()
	s.data = make(map[string]entry)
	s.mu.Unlock()
}

// Get retrieves a copy of the value stored at key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		s.mu.Lock()
		delete(s.data, key)
		s.mu.Unlock()
		return nil, db.ErrKeyNotFound
	}
	return append([]byte(nil), e.value...), nil
}

// Set stores a copy of value at key without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.SetWithTTL(ctx, key, value, 0)
}

// SetWithTTL stores a copy of value at key. ttl <= 0 means no expiry.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.data[key] = e
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored keys, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
