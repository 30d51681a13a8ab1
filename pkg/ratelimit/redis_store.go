package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"contactguard/internal/constants"
)

// KEYS[1] window key
// ARGV[1] now (ms), ARGV[2] window (ms), ARGV[3] limit, ARGV[4] member
var admitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local count = redis.call('ZCARD', key)
if count >= limit then
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local oldestScore = now
	if oldest[2] then
		oldestScore = tonumber(oldest[2])
	end
	return {0, count, oldestScore}
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, count + 1, 0}
`)

// RedisStore keeps each window as a sorted set scored by admission time in
// milliseconds, so several instances share one view of every client. The
// caller supplies now, which keeps instances with skewed clocks consistent
// with their own decisions.
type RedisStore struct {
	client    redis.Scripter
	keyPrefix string
}

func NewRedisStore(client redis.Scripter, keyPrefix string) *RedisStore {
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (s *RedisStore) Name() string {
	return constants.StoreRedis
}

func (s *RedisStore) Admit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (Decision, error) {
	if limit < 1 {
		limit = 1
	}

	nowMs := now.UnixMilli()
	member := fmt.Sprintf("%d-%s", nowMs, uuid.NewString())

	raw, err := admitScript.Run(ctx, s.client,
		[]string{s.keyPrefix + key},
		nowMs, window.Milliseconds(), limit, member,
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("redis admit %s: %w", key, err)
	}
	if len(raw) != 3 {
		return Decision{}, fmt.Errorf("redis admit %s: unexpected reply length %d", key, len(raw))
	}

	if raw[0] == 1 {
		return Decision{
			Allowed:   true,
			Remaining: limit - int(raw[1]),
			Store:     s.Name(),
		}, nil
	}

	return Decision{
		Allowed:           false,
		RetryAfterSeconds: retryAfterSeconds(time.UnixMilli(raw[2]), now, window),
		Store:             s.Name(),
	}, nil
}
