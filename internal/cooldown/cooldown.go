package cooldown

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"StockSentinel/pkg/errors"
)

const keyPrefix = "cooldown:"

// Guard rate-limits an action per key. Acquire returns errors.ErrCooldown
// when the key was acquired less than ttl ago.
type Guard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) error
}

// RedisGuard shares cooldowns across instances via SET NX.
type RedisGuard struct {
	rdb *redis.Client
}

// NewRedisGuard connects and pings Redis.
func NewRedisGuard(ctx context.Context, addr, password string, db int) (*RedisGuard, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return &RedisGuard{rdb: rdb}, nil
}

func (g *RedisGuard) Acquire(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := g.rdb.SetNX(ctx, keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return errors.Wrap(err, "redis setnx")
	}
	if !ok {
		return errors.Wrapf(errors.ErrCooldown, "key %s", key)
	}
	return nil
}

// Close closes the Redis client.
func (g *RedisGuard) Close() error {
	return g.rdb.Close()
}

// MemoryGuard is a single-process Guard.
type MemoryGuard struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

// NewMemoryGuard creates an empty guard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{until: make(map[string]time.Time), now: time.Now}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string, ttl time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if exp, ok := g.until[key]; ok && now.Before(exp) {
		return errors.Wrapf(errors.ErrCooldown, "key %s", key)
	}
	g.until[key] = now.Add(ttl)

	// drop expired entries so the map does not grow with every user
	for k, exp := range g.until {
		if !now.Before(exp) {
			delete(g.until, k)
		}
	}
	return nil
}
