package sequence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "seq:"

// RedisAllocator uses INCR, which creates missing keys at 0 before incrementing.
type RedisAllocator struct {
	client *redis.Client
}

func NewRedisAllocator(client *redis.Client) *RedisAllocator {
	return &RedisAllocator{client: client}
}

func (a *RedisAllocator) Next(ctx context.Context, scope string) (int64, error) {
	v, err := a.client.Incr(ctx, redisKeyPrefix+scope).Result()
	if err != nil {
		return 0, fmt.Errorf("incr sequence %s: %w", scope, err)
	}
	return v, nil
}

var _ Allocator = (*RedisAllocator)(nil)
