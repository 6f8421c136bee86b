package handlers

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// maxLimiters bounds the number of buckets a MemoryLimiter keeps.
const maxLimiters = 10000

// MemoryLimiter is a per-key token bucket kept in process memory. Once
// maxLimiters keys are tracked, the least recently used bucket is evicted to
// make room.
type MemoryLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	max      int
}

// NewMemoryLimiter allows perMinute requests per key with the given burst.
func NewMemoryLimiter(perMinute, burst int) *MemoryLimiter {
	return &MemoryLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		max:      maxLimiters,
	}
}

// Allow consumes one token from key's bucket.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= l.max {
			l.evictOldest()
		}
		e = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = e
	}
	e.lastAccess = time.Now()
	return e.limiter.Allow(), nil
}

// evictOldest removes the least recently used bucket. l.mu must be held.
func (l *MemoryLimiter) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for k, e := range l.limiters {
		if oldestKey == "" || e.lastAccess.Before(oldest) {
			oldestKey, oldest = k, e.lastAccess
		}
	}
	delete(l.limiters, oldestKey)
}

// Len reports the number of tracked buckets.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Sweep drops buckets idle for longer than ttl and returns how many were
// removed.
func (l *MemoryLimiter) Sweep(ttl time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	cutoff := time.Now().Add(-ttl)
	for k, e := range l.limiters {
		if e.lastAccess.Before(cutoff) {
			delete(l.limiters, k)
			n++
		}
	}
	return n
}

// limit key prefix
const loginKeyPrefix = "r:login"

// RedisLimiter shares the limit across instances through Redis.
type RedisLimiter struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
}

// NewRedisLimiter allows perMinute requests per key with the given burst.
func NewRedisLimiter(rdb *redis.Client, perMinute, burst int) *RedisLimiter {
	limit := redis_rate.PerMinute(perMinute)
	limit.Burst = burst
	return &RedisLimiter{limiter: redis_rate.NewLimiter(rdb), limit: limit}
}

// Allow consumes one request from key's allowance.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	res, err := l.limiter.Allow(ctx, fmt.Sprintf("%s:%s", loginKeyPrefix, key), l.limit)
	if err != nil {
		return false, err
	}
	return res.Allowed != 0, nil
}

// clientIP returns the host part of RemoteAddr. Behind a trusted proxy chi's
// RealIP middleware has already replaced it with the forwarded address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit rejects requests over l's limit with 429. A limiter error is
// treated as a rejection.
func RateLimit(l Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := l.Allow(r.Context(), clientIP(r))
			if err != nil {
				log.WithError(err).Warn("rate limiter unavailable")
			}
			if !ok {
				respondJSONError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
