package statetoken

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReplayGuard records consumed tokens. Consume reports true the first time a
// key is seen and false afterwards, until ttl has elapsed. The caller computes
// ttl from its own clock. A non-positive ttl is never accepted.
// Implementations must be atomic under concurrent callbacks.
type ReplayGuard interface {
	Consume(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// MemoryReplayGuard is a process-local ReplayGuard. It only protects a single
// instance; multi-instance deployments should use RedisReplayGuard.
type MemoryReplayGuard struct {
	mu    sync.Mutex
	seen  map[string]time.Time
	now   func() time.Time
	sweep int
}

// NewMemoryReplayGuard creates an empty in-memory guard.
func NewMemoryReplayGuard() *MemoryReplayGuard {
	return &MemoryReplayGuard{seen: make(map[string]time.Time), now: time.Now}
}

// Consume marks key as used for ttl.
func (g *MemoryReplayGuard) Consume(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()

	// Expired entries are dropped every 64 inserts to bound memory.
	g.sweep++
	if g.sweep >= 64 {
		g.sweep = 0
		for k, exp := range g.seen {
			if now.After(exp) {
				delete(g.seen, k)
			}
		}
	}

	if exp, ok := g.seen[key]; ok && !now.After(exp) {
		return false, nil
	}
	g.seen[key] = now.Add(ttl)
	return true, nil
}

// RedisReplayGuard shares consumed tokens between instances using SET NX.
type RedisReplayGuard struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisReplayGuard creates a guard storing keys under prefix.
func NewRedisReplayGuard(client redis.UniversalClient, prefix string) *RedisReplayGuard {
	if prefix == "" {
		prefix = "oauth_state:"
	}
	return &RedisReplayGuard{client: client, prefix: prefix}
}

// Consume sets the key only if absent; the key expires after ttl.
func (g *RedisReplayGuard) Consume(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}
	return g.client.SetNX(ctx, g.prefix+key, 1, ttl).Result()
}
