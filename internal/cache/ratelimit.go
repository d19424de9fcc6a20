package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key prefixes and idle expiry of the two bucket families.
const (
	rateLimitCallerPrefix = "ratelimit:caller:"
	rateLimitIPPrefix     = "ratelimit:ip:"
	rateLimitCallerTTL    = 120 * time.Second
	rateLimitIPTTL        = 10 * time.Second
)

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// bucket is one token bucket: capacity tokens, refilled continuously at
// perSecond, forgotten after ttl without traffic.
type bucket struct {
	key       string
	perSecond float64
	capacity  int
	ttl       time.Duration
}

// takeTokenScript refills a bucket up to now and takes one token if
// available, all in one atomic step. Time is in milliseconds so sub-second
// refills are not lost.
//
// Returns {granted, wait_ms, remaining}.
var takeTokenScript = redis.NewScript(`
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now_ms = tonumber(ARGV[3])
local ttl_ms = tonumber(ARGV[4])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
	tokens = capacity
	ts = now_ms
end

if now_ms > ts then
	tokens = math.min(capacity, tokens + (now_ms - ts) * rate)
	ts = now_ms
end

local granted = 0
local wait_ms = 0
if tokens >= 1 then
	tokens = tokens - 1
	granted = 1
else
	wait_ms = math.ceil((1 - tokens) / rate)
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', ts)
redis.call('PEXPIRE', KEYS[1], ttl_ms)

return {granted, wait_ms, math.floor(tokens)}
`)

// CheckCallerRateLimit checks and updates the write budget of an
// authenticated caller. A ratePerMinute of 0 disables the limit.
func (c *Cache) CheckCallerRateLimit(ctx context.Context, callerID string, ratePerMinute, burst int) (*RateLimitResult, error) {
	if ratePerMinute == 0 {
		return c.unlimited(burst), nil
	}
	return c.take(ctx, bucket{
		key:       rateLimitCallerPrefix + callerID,
		perSecond: float64(ratePerMinute) / 60,
		capacity:  burst,
		ttl:       rateLimitCallerTTL,
	})
}

// CheckIPRateLimit checks and updates the budget of a client address. The
// address is stored hashed. A ratePerSecond of 0 disables the limit.
func (c *Cache) CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	if ratePerSecond == 0 {
		return c.unlimited(burst), nil
	}
	return c.take(ctx, bucket{
		key:       rateLimitIPPrefix + hashIP(ip),
		perSecond: float64(ratePerSecond),
		capacity:  burst,
		ttl:       rateLimitIPTTL,
	})
}

func (c *Cache) unlimited(burst int) *RateLimitResult {
	return &RateLimitResult{
		Allowed:   true,
		Remaining: int64(burst),
		ResetAt:   c.now().Add(time.Minute),
	}
}

// take runs the bucket script. A Redis failure yields an allowing result
// together with the error so callers can fail open.
func (c *Cache) take(ctx context.Context, b bucket) (*RateLimitResult, error) {
	now := c.now()

	reply, err := takeTokenScript.Run(ctx, c.client, []string{b.key},
		b.perSecond/1000, b.capacity, now.UnixMilli(), b.ttl.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return c.unlimited(b.capacity), err
	}

	perToken := time.Duration(math.Ceil(float64(time.Second) / b.perSecond))
	return &RateLimitResult{
		Allowed:    reply[0] == 1,
		Remaining:  reply[2],
		ResetAt:    now.Add(perToken),
		RetryAfter: time.Duration(reply[1]) * time.Millisecond,
	}, nil
}

// hashIP returns the first 8 bytes of the SHA-256 of ip, hex encoded.
func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}
