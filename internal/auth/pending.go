package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/koru-app/koru/internal/models"
	"github.com/redis/go-redis/v9"
)

// PendingSignupStore holds registered-but-unconfirmed users keyed by the
// jti of their confirmation token, with a secondary email → jti pointer so
// duplicate signups can be detected before confirmation. Both entries
// carry the email-token lifetime as TTL and may expire silently without
// the user ever being persisted.
type PendingSignupStore interface {
	// Store serializes the user under the jti key and writes the email
	// pointer, both with the given TTL.
	Store(ctx context.Context, user *models.User, jti, email string, ttl time.Duration) error
	// IsEmailPending reports whether a signup for the email is awaiting
	// confirmation.
	IsEmailPending(ctx context.Context, email string) (bool, error)
	// Pop atomically fetches and deletes the user for a jti. It returns
	// (nil, nil) when the jti is unknown, already consumed or expired.
	// The email pointer is left behind to expire on its own TTL.
	Pop(ctx context.Context, jti string) (*models.User, error)
}

// pendingUser is the cache record for an unconfirmed signup. The API model
// hides the password hash from JSON, but the cache entry must carry it
// through to user creation, so it gets its own serialized form.
type pendingUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
}

func encodePendingUser(u *models.User) ([]byte, error) {
	return json.Marshal(pendingUser{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
	})
}

func decodePendingUser(data []byte) (*models.User, error) {
	var p pendingUser
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &models.User{
		ID:           p.ID,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
	}, nil
}

// RedisPendingSignupStore implements PendingSignupStore on Redis
type RedisPendingSignupStore struct {
	client *redis.Client
	prefix string
}

// NewRedisPendingSignupStore creates a Redis-backed pending-signup store
func NewRedisPendingSignupStore(client *redis.Client, prefix string) *RedisPendingSignupStore {
	return &RedisPendingSignupStore{client: client, prefix: prefix}
}

func (s *RedisPendingSignupStore) signupKey(jti string) string {
	return s.prefix + "signup:" + jti
}

func (s *RedisPendingSignupStore) emailKey(email string) string {
	return s.prefix + "signup:email:" + email
}

// Store writes both entries in one pipeline so a concurrent
// IsEmailPending never observes the pointer without the record it points
// to eventually existing.
func (s *RedisPendingSignupStore) Store(ctx context.Context, user *models.User, jti, email string, ttl time.Duration) error {
	data, err := encodePendingUser(user)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.signupKey(jti), data, ttl)
	pipe.Set(ctx, s.emailKey(email), jti, ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// IsEmailPending checks the email pointer
func (s *RedisPendingSignupStore) IsEmailPending(ctx context.Context, email string) (bool, error) {
	n, err := s.client.Exists(ctx, s.emailKey(email)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Pop fetches and deletes the pending user in one round trip (GETDEL)
func (s *RedisPendingSignupStore) Pop(ctx context.Context, jti string) (*models.User, error) {
	data, err := s.client.GetDel(ctx, s.signupKey(jti)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return decodePendingUser(data)
}
