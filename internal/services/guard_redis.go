package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const guardKey = "guard:last_request_ms"

// checkAndSetScript compares and writes in one round trip so concurrent
// replicas cannot both accept inside the same interval.
var checkAndSetScript = redis.NewScript(`
local last = tonumber(redis.call('GET', KEYS[1]) or '-1')
local now = tonumber(ARGV[1])
local interval = tonumber(ARGV[2])
if last >= 0 and now - last < interval then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1])
return 1
`)

// RedisGuardStore shares the last accepted request time between replicas.
type RedisGuardStore struct {
	client *redis.Client
	key    string
}

func NewRedisGuardStore(client *redis.Client) *RedisGuardStore {
	return &RedisGuardStore{client: client, key: guardKey}
}

func (s *RedisGuardStore) CheckAndSet(ctx context.Context, now time.Time, interval time.Duration) (bool, error) {
	res, err := checkAndSetScript.Run(ctx, s.client, []string{s.key}, now.UnixMilli(), interval.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("guard check failed: %w", err)
	}
	return res == 1, nil
}

func (s *RedisGuardStore) LastRequestTime(ctx context.Context) (time.Time, error) {
	ms, err := s.client.Get(ctx, s.key).Int64()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read guard state: %w", err)
	}
	return time.UnixMilli(ms), nil
}
