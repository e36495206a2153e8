package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// NonceCache records nonces seen within the signature TTL so a captured
// (nonce, signature) pair cannot be replayed. Seen reports true when the
// nonce was already recorded for the key.
type NonceCache interface {
	Seen(ctx context.Context, keyID, nonce string, ttl time.Duration) (bool, error)
}

type localNonceCache struct {
	mu      sync.Mutex
	entries map[string]time.Time
	cleanup time.Time
}

func NewLocalNonceCache() NonceCache {
	return &localNonceCache{
		entries: make(map[string]time.Time),
		cleanup: time.Now().Add(time.Minute),
	}
}

func (c *localNonceCache) Seen(_ context.Context, keyID, nonce string, ttl time.Duration) (bool, error) {
	now := time.Now()
	entry := keyID + ":" + nonce
	c.mu.Lock()
	defer c.mu.Unlock()

	if now.After(c.cleanup) {
		for k, expiry := range c.entries {
			if now.After(expiry) {
				delete(c.entries, k)
			}
		}
		c.cleanup = now.Add(ttl)
	}

	if expiry, ok := c.entries[entry]; ok && now.Before(expiry) {
		return true, nil
	}
	c.entries[entry] = now.Add(ttl)
	return false, nil
}

// RedisNonceCache shares the replay window across instances via SET NX.
type RedisNonceCache struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisNonceCache(client redis.UniversalClient, prefix string) *RedisNonceCache {
	if prefix == "" {
		prefix = "nonce"
	}
	return &RedisNonceCache{client: client, prefix: prefix}
}

func (c *RedisNonceCache) Seen(ctx context.Context, keyID, nonce string, ttl time.Duration) (bool, error) {
	set, err := c.client.SetNX(ctx, fmt.Sprintf("%s:%s:%s", c.prefix, keyID, nonce), 1, ttl).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}
