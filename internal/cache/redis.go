package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisEntryPrefix = "cache:"
	redisTagPrefix   = "cachetag:"
)

// Redis is the Cache used when responses must be shared across gateway
// instances. Entry expiry is delegated to Redis TTLs; tag membership is
// kept in sets and cleaned up on invalidation.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing client. The caller owns connectivity
// configuration; Close releases the client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, redisEntryPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: redis get: %w", err)
	}
	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	if err := r.client.Set(ctx, redisEntryPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}

	if len(tags) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for _, tag := range tags {
		pipe.SAdd(ctx, redisTagPrefix+tag, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache: redis tag index: %w", err)
	}
	return nil
}

func (r *Redis) DeleteByTag(ctx context.Context, tag string) error {
	tagKey := redisTagPrefix + tag

	keys, err := r.client.SMembers(ctx, tagKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("cache: redis tag members: %w", err)
	}

	if len(keys) > 0 {
		prefixed := make([]string, len(keys))
		for i, k := range keys {
			prefixed[i] = redisEntryPrefix + k
		}
		if err := r.client.Del(ctx, prefixed...).Err(); err != nil {
			return fmt.Errorf("cache: redis delete by tag: %w", err)
		}
	}

	if err := r.client.Del(ctx, tagKey).Err(); err != nil {
		return fmt.Errorf("cache: redis tag cleanup: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

var _ Cache = (*Redis)(nil)
