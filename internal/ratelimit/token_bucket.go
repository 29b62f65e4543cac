package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// GCRA: the key holds the theoretical arrival time (TAT) of the next event in
// redis milliseconds. A request is let through while TAT minus the burst
// allowance is not in the future. Returns {allowed, remaining, retry_ms}.
var gcraScript = redis.NewScript(`
local interval = tonumber(ARGV[1])
local allowance = tonumber(ARGV[2])

local t = redis.call("TIME")
local now = t[1] * 1000 + math.floor(t[2] / 1000)

local tat = tonumber(redis.call("GET", KEYS[1]))
if tat == nil or tat < now then
  tat = now
end

local next_tat = tat + interval
local allow_at = next_tat - allowance
if allow_at > now then
  return {0, 0, math.ceil(allow_at - now)}
end

redis.call("SET", KEYS[1], tostring(next_tat), "PX", math.max(1, math.ceil(next_tat - now)))
return {1, math.floor((now - allow_at) / interval), 0}
`)

// TokenBucket meters requests per key at rate per second with burst headroom.
type TokenBucket struct {
	client *redis.Client
}

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

func NewTokenBucket(client *redis.Client) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{client: client}
}

func (t *TokenBucket) Allow(ctx context.Context, key string, rate float64, burst int) (*Result, error) {
	if t == nil || t.client == nil {
		return &Result{}, errors.New("rate limiter not configured")
	}
	if key == "" {
		return &Result{}, errors.New("rate limiter key is empty")
	}
	interval, allowance, err := gcraParams(rate, burst)
	if err != nil {
		return &Result{}, err
	}

	reply, err := gcraScript.Run(ctx, t.client, []string{key}, interval, allowance).Int64Slice()
	if err != nil {
		return &Result{}, err
	}
	if len(reply) != 3 {
		return &Result{}, errors.New("invalid rate limit script response")
	}
	return &Result{
		Allowed:    reply[0] == 1,
		Limit:      burst,
		Remaining:  int(reply[1]),
		RetryAfter: time.Duration(reply[2]) * time.Millisecond,
	}, nil
}

// gcraParams converts rate and burst into the script's arguments: the spacing
// between requests and the burst allowance, both in milliseconds.
func gcraParams(rate float64, burst int) (string, string, error) {
	if rate <= 0 || burst <= 0 {
		return "", "", errors.New("rate limiter rate and burst must be positive")
	}
	interval := 1000 / rate
	return strconv.FormatFloat(interval, 'f', 3, 64),
		strconv.FormatFloat(interval*float64(burst), 'f', 3, 64),
		nil
}
