package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"scamlens/internal/domain/models"
	"scamlens/internal/domain/services/policy"
)

// acquireScript applies the rollover and conditional increment in one step.
// KEYS[1] quota hash; ARGV limit, now (unix ms), next reset (unix ms).
// Returns {granted, used, reset_at}.
var acquireScript = redis.NewScript(`
local vals = redis.call('HMGET', KEYS[1], 'used', 'reset_at')
local used = tonumber(vals[1]) or 0
local reset = tonumber(vals[2]) or 0
local limit = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
if reset == 0 or now > reset then
  used = 0
  reset = tonumber(ARGV[3])
end
if used >= limit then
  return {0, used, reset}
end
used = used + 1
redis.call('HSET', KEYS[1], 'used', used, 'reset_at', reset)
redis.call('PEXPIREAT', KEYS[1], reset + 60000)
return {1, used, reset}
`)

// releaseScript decrements inside the current window only. ARGV now (unix ms).
var releaseScript = redis.NewScript(`
local vals = redis.call('HMGET', KEYS[1], 'used', 'reset_at')
local used = tonumber(vals[1]) or 0
local reset = tonumber(vals[2]) or 0
if reset == 0 or tonumber(ARGV[1]) > reset or used <= 0 then
  return 0
end
redis.call('HINCRBY', KEYS[1], 'used', -1)
return 1
`)

// QuotaStore keeps quota windows in Redis hashes
type QuotaStore struct {
	cache *RedisCache
}

// NewQuotaStore creates a Redis-backed quota store
func NewQuotaStore(cache *RedisCache) *QuotaStore {
	return &QuotaStore{cache: cache}
}

var _ policy.QuotaStore = (*QuotaStore)(nil)

func (s *QuotaStore) redisKey(sub policy.Subject) (string, error) {
	k, err := sub.Key()
	if err != nil {
		return "", err
	}
	return s.cache.key(k), nil
}

// Acquire runs the grant transition atomically on the server
func (s *QuotaStore) Acquire(ctx context.Context, sub policy.Subject, limit int, now time.Time) (policy.Record, bool, error) {
	key, err := s.redisKey(sub)
	if err != nil {
		return policy.Record{}, false, err
	}

	next := models.NextResetAt(now).UnixMilli()
	vals, err := acquireScript.Run(ctx, s.cache.client, []string{key}, limit, now.UnixMilli(), next).Int64Slice()
	if err != nil {
		return policy.Record{}, false, fmt.Errorf("quota script: %w", err)
	}
	if len(vals) != 3 {
		return policy.Record{}, false, fmt.Errorf("quota script: unexpected reply %v", vals)
	}

	rec := policy.Record{Used: int(vals[1]), ResetAt: time.UnixMilli(vals[2]).UTC()}
	return rec, vals[0] == 1, nil
}

// Release gives back one unit inside the current window
func (s *QuotaStore) Release(ctx context.Context, sub policy.Subject, now time.Time) error {
	key, err := s.redisKey(sub)
	if err != nil {
		return err
	}
	if err := releaseScript.Run(ctx, s.cache.client, []string{key}, now.UnixMilli()).Err(); err != nil {
		return fmt.Errorf("release script: %w", err)
	}
	return nil
}

// Status reads the window without modifying it
func (s *QuotaStore) Status(ctx context.Context, sub policy.Subject, now time.Time) (policy.Record, error) {
	key, err := s.redisKey(sub)
	if err != nil {
		return policy.Record{}, err
	}

	vals, err := s.cache.client.HMGet(ctx, key, "used", "reset_at").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return policy.Record{}, fmt.Errorf("read quota: %w", err)
	}

	var rec policy.Record
	if len(vals) == 2 {
		rec.Used = int(parseInt(vals[0]))
		if reset := parseInt(vals[1]); reset > 0 {
			rec.ResetAt = time.UnixMilli(reset).UTC()
		}
	}
	return policy.Rollover(rec, now), nil
}

func parseInt(v any) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
