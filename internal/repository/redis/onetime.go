package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/homevista/brokerage/internal/repository"
	apperrors "github.com/homevista/brokerage/pkg/errors"
)

const keyPrefix = "onetime:"

// OneTimeTokenStore implements repository.OneTimeTokenStore using Redis.
// Tokens expire via Redis TTL and are deleted atomically on redemption.
type OneTimeTokenStore struct {
	client *redis.Client
}

// NewOneTimeTokenStore creates a new Redis-backed one-time token store.
func NewOneTimeTokenStore(client *redis.Client) *OneTimeTokenStore {
	return &OneTimeTokenStore{client: client}
}

func key(kind repository.OneTimeTokenKind, token string) string {
	return keyPrefix + string(kind) + ":" + token
}

// Put stores a token mapped to a user ID with the given TTL.
func (s *OneTimeTokenStore) Put(ctx context.Context, kind repository.OneTimeTokenKind, token, userID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key(kind, token), userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis set one-time token: %w", err)
	}
	return nil
}

// Consume redeems a token, returning the user ID it was issued for. GETDEL
// makes redemption atomic; a concurrent second redemption fails.
func (s *OneTimeTokenStore) Consume(ctx context.Context, kind repository.OneTimeTokenKind, token string) (string, error) {
	userID, err := s.client.GetDel(ctx, key(kind, token)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", apperrors.Unauthorized("invalid or expired token")
		}
		return "", fmt.Errorf("redis getdel one-time token: %w", err)
	}
	return userID, nil
}
