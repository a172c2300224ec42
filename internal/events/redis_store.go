package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupeKeyPrefix = "cybersathi:processed:"

// RedisStore records provider message ids as expiring Redis keys.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore returns a store whose marks expire after ttl (24h when zero).
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("events: redis client required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func dedupeKey(provider, messageID string) string {
	return dedupeKeyPrefix + provider + ":" + messageID
}

// MarkProcessed sets the id with SETNX, returning false if it was already present.
func (s *RedisStore) MarkProcessed(ctx context.Context, provider, messageID string) (bool, error) {
	if err := checkIDs(provider, messageID); err != nil {
		return false, err
	}
	ok, err := s.client.SetNX(ctx, dedupeKey(provider, messageID), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("events: redis setnx: %w", err)
	}
	return ok, nil
}

// Release deletes the mark so a redelivery of the id is handled again.
func (s *RedisStore) Release(ctx context.Context, provider, messageID string) error {
	if err := checkIDs(provider, messageID); err != nil {
		return err
	}
	if err := s.client.Del(ctx, dedupeKey(provider, messageID)).Err(); err != nil {
		return fmt.Errorf("events: redis del: %w", err)
	}
	return nil
}
