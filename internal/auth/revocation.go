package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore tracks denylisted token identifiers. Entries carry a TTL
// matching the nominal lifetime of the token they revoke and expire on
// their own; no cleanup pass exists.
type RevocationStore interface {
	// Blacklist records a jti for ttl from now. Safe under concurrent
	// writers; last write wins on the TTL since values are placeholders.
	Blacklist(ctx context.Context, jti string, ttl time.Duration) error
	// IsBlacklisted reports whether the jti is currently denylisted
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// RedisRevocationStore implements RevocationStore on Redis
type RedisRevocationStore struct {
	client *redis.Client
	prefix string
}

// NewRedisRevocationStore creates a Redis-backed revocation store
func NewRedisRevocationStore(client *redis.Client, prefix string) *RedisRevocationStore {
	return &RedisRevocationStore{client: client, prefix: prefix}
}

func (s *RedisRevocationStore) key(jti string) string {
	return s.prefix + "blacklist:" + jti
}

// Blacklist records a jti with automatic expiry
func (s *RedisRevocationStore) Blacklist(ctx context.Context, jti string, ttl time.Duration) error {
	return s.client.Set(ctx, s.key(jti), "1", ttl).Err()
}

// IsBlacklisted checks the denylist for a jti
func (s *RedisRevocationStore) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
