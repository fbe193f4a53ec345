package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Options selects and tunes the cache backend.
type Options struct {
	// Backend is "memory" or "redis".
	Backend string
	// RedisAddr, RedisPassword and RedisDB configure the redis backend.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// CleanupInterval applies to the memory backend's janitor.
	CleanupInterval time.Duration
}

// New builds the configured Cache. When the redis backend is requested
// but unreachable it falls back to the in-process cache with a warning,
// so a cold cache never blocks startup.
func New(opts Options, logger *logrus.Logger) Cache {
	if opts.Backend != "redis" {
		return NewMemory(MemoryOptions{CleanupInterval: opts.CleanupInterval})
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.RedisAddr,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Redis unavailable, falling back to in-memory cache")
		client.Close()
		return NewMemory(MemoryOptions{CleanupInterval: opts.CleanupInterval})
	}

	logger.WithField("addr", opts.RedisAddr).Info("Using Redis cache")
	return NewRedis(client)
}
