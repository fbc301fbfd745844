package dedup

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSet stores identifiers in a single redis set so several relay
// processes share one view of what was handled.
type RedisSet struct {
	client   *redis.Client
	key      string
	capacity int
}

// NewRedisSet creates a redis-backed set stored under key.
func NewRedisSet(client *redis.Client, key string, capacity int) *RedisSet {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RedisSet{
		client:   client,
		key:      key,
		capacity: capacity,
	}
}

// MarkIfNew implements Set. SADD is atomic, so only one caller observes the add.
func (s *RedisSet) MarkIfNew(ctx context.Context, id string) (bool, error) {
	added, err := s.client.SAdd(ctx, s.key, id).Result()
	if err != nil {
		return false, fmt.Errorf("record message id: %w", err)
	}
	if added == 0 {
		return false, nil
	}

	size, err := s.client.SCard(ctx, s.key).Result()
	if err != nil {
		return true, fmt.Errorf("count message ids: %w", err)
	}
	if size > int64(s.capacity) {
		if err := s.client.Del(ctx, s.key).Err(); err != nil {
			return true, fmt.Errorf("reset message ids: %w", err)
		}
	}
	return true, nil
}

// Len implements Set.
func (s *RedisSet) Len(ctx context.Context) (int, error) {
	size, err := s.client.SCard(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("count message ids: %w", err)
	}
	return int(size), nil
}

// Ping implements Set.
func (s *RedisSet) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements Set.
func (s *RedisSet) Close() error {
	return s.client.Close()
}
