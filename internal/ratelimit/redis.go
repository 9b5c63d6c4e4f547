package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript runs the fixed-window check in redis so that replicas of the
// server share one counter per key.
// KEYS[1] = key, ARGV = now (ms), window (ms), limit.
// Returns {allowed, count, start_ms}.
var hitScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local start = tonumber(redis.call('HGET', KEYS[1], 'start'))
if not start or now > start + window then
  redis.call('HSET', KEYS[1], 'start', now, 'count', 1)
  redis.call('PEXPIRE', KEYS[1], window + 1)
  return {1, 1, now}
end
local count = tonumber(redis.call('HGET', KEYS[1], 'count'))
if count >= limit then
  return {0, count, start}
end
count = redis.call('HINCRBY', KEYS[1], 'count', 1)
return {1, count, start}
`)

// RedisStore keeps counters in redis
type RedisStore struct {
	client redis.Scripter
	prefix string
}

// NewRedisStore creates a store on client. Keys are namespaced with prefix.
func NewRedisStore(client redis.Scripter, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Hit implements Store
func (r *RedisStore) Hit(ctx context.Context, key string, now time.Time, length time.Duration, limit int) (Window, error) {
	res, err := hitScript.Run(ctx, r.client, []string{r.prefix + key},
		now.UnixMilli(), length.Milliseconds(), limit,
	).Int64Slice()
	if err != nil {
		return Window{}, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	if len(res) != 3 {
		return Window{}, fmt.Errorf("unexpected rate limit script reply: %v", res)
	}
	return Window{
		Allowed: res[0] == 1,
		Count:   int(res[1]),
		Start:   time.UnixMilli(res[2]),
	}, nil
}

// OpenRedis connects to the redis server at url and pings it
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
