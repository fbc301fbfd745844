package dedup

import "github.com/redis/go-redis/v9"

// Option is a functional option for configuring a set.
type Option func(*setConfig)

type setConfig struct {
	capacity    int
	redisClient *redis.Client
	redisKey    string
}

// WithCapacity sets the size above which the set is cleared.
func WithCapacity(n int) Option {
	return func(c *setConfig) {
		c.capacity = n
	}
}

// WithRedisClient sets the client for the redis driver.
func WithRedisClient(client *redis.Client) Option {
	return func(c *setConfig) {
		c.redisClient = client
	}
}

// WithRedisKey sets the key holding the redis set.
func WithRedisKey(key string) Option {
	return func(c *setConfig) {
		c.redisKey = key
	}
}
