package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistributedLock is the lock interface shared by the scheduled jobs.
type DistributedLock interface {
	// Acquire tries to take the lock.
	// key: unique lock identifier
	// ttl: lock expiry
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release releases the lock.
	Release(ctx context.Context, key string) error
}

// RedisLock implements DistributedLock with Redis SETNX.
type RedisLock struct {
	client *redis.Client
}

func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{client: client}
}

func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	// SET key value NX EX ttl
	success, err := l.client.SetNX(ctx, "lock:"+key, "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

func (l *RedisLock) Release(ctx context.Context, key string) error {
	// TTL is the backstop if a holder dies without releasing.
	return l.client.Del(ctx, "lock:"+key).Err()
}
