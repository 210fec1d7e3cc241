package memory

import (
	"context"
	"sync"
	"time"
)

// TokenBlacklist is an in-memory implementation of app.TokenBlacklist.
type TokenBlacklist struct {
	mu      sync.Mutex
	clock   func() time.Time
	revoked map[string]time.Time
}

func NewTokenBlacklist() *TokenBlacklist {
	return &TokenBlacklist{
		clock:   time.Now,
		revoked: make(map[string]time.Time),
	}
}

func (b *TokenBlacklist) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.clock()
	b.revoked[tokenID] = now.Add(ttl)
	b.pruneLocked(now)
	return nil
}

func (b *TokenBlacklist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	until, ok := b.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !until.After(b.clock()) {
		delete(b.revoked, tokenID)
		return false, nil
	}
	return true, nil
}

func (b *TokenBlacklist) pruneLocked(now time.Time) {
	for id, until := range b.revoked {
		if !until.After(now) {
			delete(b.revoked, id)
		}
	}
}
