package auth

import (
	"context"
	"sync"
	"time"

	"github.com/koru-app/koru/internal/models"
)

// In-memory implementations of the cache-backed stores, used when the
// cache type is "memory" (single-process deployments) and in tests.
// Expired entries are dropped lazily on read.

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired() bool {
	return time.Now().After(e.expiresAt)
}

// MemoryRevocationStore implements RevocationStore with a mutex-guarded map
type MemoryRevocationStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryRevocationStore creates an in-memory revocation store
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{entries: make(map[string]memoryEntry)}
}

// Blacklist records a jti until its TTL elapses
func (s *MemoryRevocationStore) Blacklist(_ context.Context, jti string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[jti] = memoryEntry{expiresAt: time.Now().Add(ttl)}
	return nil
}

// IsBlacklisted checks the denylist for a jti
func (s *MemoryRevocationStore) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[jti]
	if !ok {
		return false, nil
	}
	if entry.expired() {
		delete(s.entries, jti)
		return false, nil
	}
	return true, nil
}

// MemoryPendingSignupStore implements PendingSignupStore with two
// mutex-guarded maps mirroring the jti record and the email pointer.
type MemoryPendingSignupStore struct {
	mu      sync.Mutex
	signups map[string]memoryEntry
	emails  map[string]memoryEntry
}

// NewMemoryPendingSignupStore creates an in-memory pending-signup store
func NewMemoryPendingSignupStore() *MemoryPendingSignupStore {
	return &MemoryPendingSignupStore{
		signups: make(map[string]memoryEntry),
		emails:  make(map[string]memoryEntry),
	}
}

// Store records the serialized user and the email pointer under one lock
func (s *MemoryPendingSignupStore) Store(_ context.Context, user *models.User, jti, email string, ttl time.Duration) error {
	data, err := encodePendingUser(user)
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signups[jti] = memoryEntry{value: data, expiresAt: expiresAt}
	s.emails[email] = memoryEntry{value: []byte(jti), expiresAt: expiresAt}
	return nil
}

// IsEmailPending checks the email pointer
func (s *MemoryPendingSignupStore) IsEmailPending(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.emails[email]
	if !ok {
		return false, nil
	}
	if entry.expired() {
		delete(s.emails, email)
		return false, nil
	}
	return true, nil
}

// Pop fetches and deletes the pending user. The email pointer stays until
// its own expiry, matching the Redis implementation.
func (s *MemoryPendingSignupStore) Pop(_ context.Context, jti string) (*models.User, error) {
	s.mu.Lock()
	entry, ok := s.signups[jti]
	if ok {
		delete(s.signups, jti)
	}
	s.mu.Unlock()

	if !ok || entry.expired() {
		return nil, nil
	}

	return decodePendingUser(entry.value)
}
