package dedup

// Driver names a Set implementation.
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverRedis  Driver = "redis"
)

const defaultRedisKey = "chatrelay:processed"

// NewSet creates a Set for the given driver.
// The redis driver requires WithRedisClient.
func NewSet(driver Driver, opts ...Option) (Set, error) {
	cfg := &setConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.capacity <= 0 {
		cfg.capacity = DefaultCapacity
	}

	switch driver {
	case DriverMemory, "":
		return NewMemorySet(cfg.capacity), nil

	case DriverRedis:
		if cfg.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		key := cfg.redisKey
		if key == "" {
			key = defaultRedisKey
		}
		return NewRedisSet(cfg.redisClient, key, cfg.capacity), nil

	default:
		return nil, ErrInvalidDriver
	}
}
