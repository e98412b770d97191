package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const userLockPrefix = "grade-api:lock:user:"

// Deletes the lock only while it still holds our token, so an expired lock taken over
// by another process is never released by us
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker serializes pipeline runs per user across processes
type RedisLocker struct {
	cache *RedisCache
	ttl   time.Duration
	retry time.Duration
}

// NewRedisLocker creates a locker whose locks expire after ttl if never released
func NewRedisLocker(cache *RedisCache, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		cache: cache,
		ttl:   ttl,
		retry: 50 * time.Millisecond,
	}
}

// UserLockKey returns the redis key guarding userID
func UserLockKey(userID uint) string {
	return fmt.Sprintf("%s%d", userLockPrefix, userID)
}

// Lock polls until the user lock is acquired or ctx is done
func (l *RedisLocker) Lock(ctx context.Context, userID uint) (func(), error) {
	key := UserLockKey(userID)
	token := uuid.NewString()

	for {
		ok, err := l.cache.SetNX(ctx, key, token, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, l.cache.client, []string{key}, token).Err()
		})
	}, nil
}
