// Package ratelimiter throttles completion calls with a token bucket kept in
// Redis, so every instance sharing the store draws from the same budget.
package ratelimiter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether an operation under key may proceed now.
type Limiter interface {
	Allow(ctx context.Context, key string, cost int64) (allowed bool, retryAfter time.Duration, err error)
}

// BucketConfig sizes one token bucket.
type BucketConfig struct {
	Capacity   int64
	RefillRate float64 // tokens per second
}

// NewBucketConfigFromPerMinute returns a bucket that allows perMinute
// operations per minute with bursts of the same size.
func NewBucketConfigFromPerMinute(perMinute int) BucketConfig {
	if perMinute <= 0 {
		return BucketConfig{}
	}
	return BucketConfig{
		Capacity:   int64(perMinute),
		RefillRate: float64(perMinute) / 60.0,
	}
}

// Enabled reports whether the bucket limits anything.
func (b BucketConfig) Enabled() bool { return b.Capacity > 0 && b.RefillRate > 0 }

// RedisLuaLimiter evaluates the bucket atomically in a Lua script.
type RedisLuaLimiter struct {
	rdb     redis.Scripter
	prefix  string
	script  *redis.Script
	Now     func() time.Time
	mu      sync.RWMutex
	buckets map[string]BucketConfig
}

// NewRedisLuaLimiter constructs a limiter storing buckets under prefix.
func NewRedisLuaLimiter(rdb redis.Scripter, prefix string, buckets map[string]BucketConfig) *RedisLuaLimiter {
	if buckets == nil {
		buckets = map[string]BucketConfig{}
	}
	return &RedisLuaLimiter{
		rdb:     rdb,
		prefix:  prefix,
		script:  redis.NewScript(luaTokenBucketScript),
		Now:     time.Now,
		buckets: buckets,
	}
}

// retry_after is returned in milliseconds; Redis truncates Lua numbers to
// integers on the way out.
const luaTokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])

local tokens = capacity
local last_refill = now

local data = redis.call("HMGET", key, "tokens", "last_refill")
if data[1] then
  tokens = tonumber(data[1])
end
if data[2] then
  last_refill = tonumber(data[2])
end

local delta = now - last_refill
if delta < 0 then
  delta = 0
end
tokens = math.min(capacity, tokens + delta * refill_rate)

local allowed = 0
local retry_after = 0
if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
else
  retry_after = math.ceil((cost - tokens) / refill_rate * 1000)
end

redis.call("HSET", key, "tokens", tostring(tokens), "last_refill", tostring(now))
redis.call("EXPIRE", key, math.ceil(capacity / refill_rate) + 60)

return { allowed, retry_after }
`

// Allow takes cost tokens from key's bucket. Keys without a configured
// bucket are always allowed. On Redis errors the call is allowed and the
// error returned, so callers can log it and carry on.
func (l *RedisLuaLimiter) Allow(ctx context.Context, key string, cost int64) (bool, time.Duration, error) {
	if l == nil || l.rdb == nil {
		return true, 0, nil
	}
	l.mu.RLock()
	cfg, ok := l.buckets[key]
	l.mu.RUnlock()
	if !ok || !cfg.Enabled() {
		return true, 0, nil
	}
	if cost <= 0 {
		cost = 1
	}
	nowSec := float64(l.Now().UnixNano()) / 1e9
	res, err := l.script.Run(ctx, l.rdb, []string{l.prefix + ":rate:" + key}, cfg.Capacity, cfg.RefillRate, nowSec, cost).Int64Slice()
	if err != nil {
		return true, 0, err
	}
	if len(res) < 2 {
		slog.Error("rate limiter unexpected script result", slog.String("key", key), slog.Any("result", res))
		return true, 0, nil
	}
	return res[0] == 1, time.Duration(res[1]) * time.Millisecond, nil
}

// SetBucketConfig updates or creates the bucket for key.
func (l *RedisLuaLimiter) SetBucketConfig(key string, cfg BucketConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets[key] = cfg
}
