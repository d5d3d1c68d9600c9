package session

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const rateKeyPrefix = "ratelimit:"

const windowSeconds = 60

// Decision is the limiter's answer for one request. RetryAfter is only
// meaningful when Allowed is false.
type Decision struct {
	Allowed    bool
	RetryAfter int
}

// Limiter admits or refuses a request for a session within a 60-second
// window. Implementations must fail open: if the backing store is
// unreachable the request is admitted and a warning logged, so an
// outage never locks out traffic.
type Limiter interface {
	Admit(ctx context.Context, id string) Decision
}

// RedisLimiter counts requests per session in a fixed 60s window using
// INCR with an expiry set on the first hit.
type RedisLimiter struct {
	client *redis.Client
	limit  int
}

func NewRedisLimiter(client *redis.Client, perMinute int) *RedisLimiter {
	return &RedisLimiter{client: client, limit: perMinute}
}

func (l *RedisLimiter) Admit(ctx context.Context, id string) Decision {
	key := rateKeyPrefix + id

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		log.Warn().Err(err).Str("session_id", id).Msg("rate limiter unavailable, failing open")
		return Decision{Allowed: true}
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, windowSeconds*time.Second).Err(); err != nil {
			log.Warn().Err(err).Str("session_id", id).Msg("rate limiter window expiry failed")
		}
	}
	if count <= int64(l.limit) {
		return Decision{Allowed: true}
	}

	retryAfter := windowSeconds
	if ttl, err := l.client.TTL(ctx, key).Result(); err == nil && ttl > 0 {
		retryAfter = int(ttl / time.Second)
		if retryAfter < 1 {
			retryAfter = 1
		}
	}
	return Decision{Allowed: false, RetryAfter: retryAfter}
}

// MemoryLimiter mirrors the Redis window semantics in-process.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	buckets map[string]*rateBucket
	now     func() time.Time
}

type rateBucket struct {
	windowStart time.Time
	count       int
}

func NewMemoryLimiter(perMinute int) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   perMinute,
		buckets: map[string]*rateBucket{},
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Admit(_ context.Context, id string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[id]
	if !ok || now.Sub(b.windowStart) >= windowSeconds*time.Second {
		b = &rateBucket{windowStart: now}
		l.buckets[id] = b
	}
	b.count++
	if b.count <= l.limit {
		return Decision{Allowed: true}
	}

	retryAfter := windowSeconds - int(now.Sub(b.windowStart)/time.Second)
	if retryAfter < 1 {
		retryAfter = 1
	}
	return Decision{Allowed: false, RetryAfter: retryAfter}
}
