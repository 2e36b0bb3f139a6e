package attendance

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Gate enforces a minimum interval between consecutive scans of the same
// identity, independent of section and day boundaries. It is advisory: the
// ledger's one-record-per-day rule is the authoritative guard.
type Gate interface {
	// CheckAndStamp returns 0 and stamps now when the scan is allowed, or
	// the remaining wait when it is blocked.
	CheckAndStamp(ctx context.Context, key string, now time.Time) (time.Duration, error)
}

const gateRetention = 24 * time.Hour

// MemoryGate keeps last-scan stamps in process memory. Entries idle past
// the retention window are pruned on access.
type MemoryGate struct {
	threshold time.Duration
	mu        sync.Mutex
	last      map[string]time.Time
}

// NewMemoryGate creates a gate with the given scan threshold.
func NewMemoryGate(threshold time.Duration) *MemoryGate {
	if threshold <= 0 {
		threshold = 60 * time.Second
	}
	return &MemoryGate{threshold: threshold, last: make(map[string]time.Time)}
}

// CheckAndStamp implements Gate.
func (g *MemoryGate) CheckAndStamp(_ context.Context, key string, now time.Time) (time.Duration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for k, at := range g.last {
		if now.Sub(at) > gateRetention {
			delete(g.last, k)
		}
	}

	if at, ok := g.last[key]; ok {
		if elapsed := now.Sub(at); elapsed < g.threshold {
			return g.threshold - elapsed, nil
		}
	}
	g.last[key] = now
	return 0, nil
}

// RedisGate keeps last-scan stamps in redis so multiple scanning devices
// share one cooldown view. Stamps expire with the retention window.
type RedisGate struct {
	client    *redis.Client
	threshold time.Duration
	prefix    string
}

// NewRedisGate creates a redis-backed gate.
func NewRedisGate(client *redis.Client, threshold time.Duration) *RedisGate {
	if threshold <= 0 {
		threshold = 60 * time.Second
	}
	return &RedisGate{client: client, threshold: threshold, prefix: "qrattend:cooldown:"}
}

// CheckAndStamp implements Gate.
func (g *RedisGate) CheckAndStamp(ctx context.Context, key string, now time.Time) (time.Duration, error) {
	rkey := g.prefix + key
	stamp := strconv.FormatInt(now.UnixMilli(), 10)

	ok, err := g.client.SetNX(ctx, rkey, stamp, gateRetention).Result()
	if err != nil {
		return 0, err
	}
	if ok {
		return 0, nil
	}

	prev, err := g.client.Get(ctx, rkey).Result()
	if err == redis.Nil {
		// Expired between SetNX and Get; treat as allowed.
		return 0, g.client.Set(ctx, rkey, stamp, gateRetention).Err()
	}
	if err != nil {
		return 0, err
	}
	ms, err := strconv.ParseInt(prev, 10, 64)
	if err != nil {
		return 0, g.client.Set(ctx, rkey, stamp, gateRetention).Err()
	}
	elapsed := now.Sub(time.UnixMilli(ms))
	if elapsed < g.threshold {
		return g.threshold - elapsed, nil
	}
	return 0, g.client.Set(ctx, rkey, stamp, gateRetention).Err()
}
