package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// The window starts with the first increment; PEXPIRE is also applied when a
// key somehow lost its TTL so it can never count forever.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if count == 1 or ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

type RedisCounterStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisCounterStore(client redis.UniversalClient, prefix string) *RedisCounterStore {
	if prefix == "" {
		prefix = "rate_limit"
	}
	return &RedisCounterStore{client: client, prefix: prefix}
}

func (s *RedisCounterStore) Increment(ctx context.Context, key string, window time.Duration) (Counter, error) {
	if window <= 0 {
		window = time.Minute
	}
	res, err := fixedWindowScript.Run(ctx, s.client, []string{s.prefix + ":" + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Counter{}, err
	}
	if len(res) != 2 {
		return Counter{}, fmt.Errorf("unexpected counter reply %v", res)
	}
	return Counter{
		Count:   res[0],
		ResetAt: time.Now().Add(time.Duration(res[1]) * time.Millisecond),
	}, nil
}
