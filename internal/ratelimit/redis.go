package ratelimit

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Redis is a Limiter whose windows live in Redis, so every replica shares
// the same counts. Each window is a single integer key that expires when
// the window ends.
type Redis struct {
	client    goredis.Cmdable
	keyPrefix string
	max       int
	period    time.Duration
}

var _ Limiter = (*Redis)(nil)

// RedisOption configures Redis.
type RedisOption func(*Redis)

// WithKeyPrefix sets the Redis key prefix (default "edugen:ratelimit:").
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.keyPrefix = prefix }
}

func NewRedis(client goredis.Cmdable, max int, period time.Duration, opts ...RedisOption) *Redis {
	if max <= 0 {
		max = DefaultMaxRequests
	}
	if period <= 0 {
		period = DefaultWindow
	}
	r := &Redis{
		client:    client,
		keyPrefix: "edugen:ratelimit:",
		max:       max,
		period:    period,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// allowScript admits or denies one request atomically.
// KEYS[1] = window key
// ARGV[1] = ceiling
// ARGV[2] = window length (milliseconds)
//
// Returns 1 when admitted, 0 when denied. A denial leaves the count as is.
var allowScript = goredis.NewScript(`
local key = KEYS[1]
local ceiling = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])

local current = redis.call("GET", key)
if not current then
    redis.call("SET", key, "1", "PX", window_ms)
    return 1
end

if tonumber(current) >= ceiling then
    return 0
end

redis.call("INCR", key)
return 1
`)

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	res, err := allowScript.Run(ctx, r.client,
		[]string{r.keyPrefix + key},
		r.max, r.period.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("running rate limit script: %w", err)
	}
	return res == 1, nil
}
