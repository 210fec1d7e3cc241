package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist is a Redis-backed app.TokenBlacklist. Each revoked token id is
// a key that expires together with the token.
type TokenBlacklist struct {
	client *redis.Client
}

func NewTokenBlacklist(client *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{client: client}
}

func (b *TokenBlacklist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return b.client.Set(ctx, b.key(tokenID), "1", ttl).Err()
}

func (b *TokenBlacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := b.client.Exists(ctx, b.key(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (b *TokenBlacklist) key(tokenID string) string {
	return "auth:revoked:" + tokenID
}
