package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window limiter backed by Redis, so the limit holds
// across multiple server instances. The check-and-increment runs as a Lua
// script to stay atomic under concurrent requests.
type RateLimiter struct {
	client      *redis.Client
	maxRequests int
	window      time.Duration
}

// NewLimiter creates a limiter allowing maxRequests per window per key.
func NewLimiter(client *redis.Client, maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client:      client,
		maxRequests: maxRequests,
		window:      window,
	}
}

var allowScript = redis.NewScript(`
	local key = KEYS[1]
	local max_requests = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])
	local current_time = tonumber(ARGV[3])

	local current = redis.call('GET', key)

	if current == false then
		redis.call('SET', key, 1, 'EX', window)
		return {1, max_requests - 1, current_time + window}
	else
		current = tonumber(current)
		if current < max_requests then
			redis.call('INCR', key)
			local ttl = redis.call('TTL', key)
			return {1, max_requests - current - 1, current_time + ttl}
		else
			local ttl = redis.call('TTL', key)
			return {0, 0, current_time + ttl}
		end
	end
`)

// Allow checks whether a request for key should proceed. It returns the
// decision, the remaining allowance, and when the window resets.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	redisKey := fmt.Sprintf("ratelimit:%s", key)
	windowSeconds := int(rl.window.Seconds())

	result, err := allowScript.Run(
		ctx,
		rl.client,
		[]string{redisKey},
		rl.maxRequests,
		windowSeconds,
		time.Now().Unix(),
	).Result()
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("rate limit check failed: %w", err)
	}

	resultSlice, ok := result.([]interface{})
	if !ok || len(resultSlice) != 3 {
		return false, 0, time.Time{}, fmt.Errorf("unexpected result format")
	}

	allowed := resultSlice[0].(int64) == 1
	remaining := int(resultSlice[1].(int64))
	resetTime := time.Unix(resultSlice[2].(int64), 0)

	return allowed, remaining, resetTime, nil
}

// Reset clears the rate limit for a key.
func (rl *RateLimiter) Reset(ctx context.Context, key string) error {
	return rl.client.Del(ctx, fmt.Sprintf("ratelimit:%s", key)).Err()
}

// MaxRequests returns the per-window request limit.
func (rl *RateLimiter) MaxRequests() int {
	return rl.maxRequests
}
