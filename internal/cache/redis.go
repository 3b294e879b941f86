package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "search:"

// RedisGateway is the Redis-backed result cache.
type RedisGateway struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGateway creates a result cache with the given TTL.
func NewRedisGateway(client *redis.Client, ttl time.Duration) *RedisGateway {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisGateway{client: client, ttl: ttl}
}

func (g *RedisGateway) Get(ctx context.Context, fingerprint string, requesterID int64) (*Entry, error) {
	data, err := g.client.Get(ctx, keyPrefix+fingerprint).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("unmarshal cache entry: %w", err)
	}
	// The Redis TTL normally handles expiry; the timestamp guards
	// against entries written with a longer TTL than configured.
	if time.Now().UTC().After(entry.ExpiresAt) {
		return nil, nil
	}
	if !entry.MatchesRequester(requesterID) {
		return nil, nil
	}
	return &entry, nil
}

func (g *RedisGateway) Put(ctx context.Context, fingerprint string, entry Entry, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = g.ttl
	}
	entry.ExpiresAt = time.Now().UTC().Add(ttl)
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := g.client.Set(ctx, keyPrefix+fingerprint, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
