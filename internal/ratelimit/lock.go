package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// ErrLockNotConfigured is returned by a Locker without a redis client.
var ErrLockNotConfigured = errors.New("lock client not configured")

// compare-and-delete so an expired holder cannot drop a newer lease
var releaseLease = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// ReleaseFunc gives a lease back.
type ReleaseFunc func(ctx context.Context) error

// Locker hands out named, expiring leases stored in redis. Scheduler replicas
// use it so each job runs on one instance at a time.
type Locker struct {
	client *redis.Client
	prefix string
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{client: client, prefix: "tastelanc:lock:"}
}

// Acquire takes the lease for name. acquired is false, with a nil error, when
// another holder has it.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (ReleaseFunc, bool, error) {
	if l == nil || l.client == nil {
		return nil, false, ErrLockNotConfigured
	}
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return nil, false, errors.New("lock name is empty")
	case ttl <= 0:
		return nil, false, errors.New("lock ttl must be positive")
	}

	key := l.prefix + name
	holder := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, key, holder, ttl).Result()
	if err != nil || !acquired {
		return nil, false, err
	}

	release := func(ctx context.Context) error {
		return releaseLease.Run(ctx, l.client, []string{key}, holder).Err()
	}
	return release, true, nil
}
