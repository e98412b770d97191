package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func testCache(t *testing.T) *RedisCache {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("set TEST_REDIS_URL to run redis lock tests")
	}
	c, err := NewRedisCache(url)
	if err != nil {
		t.Fatalf("NewRedisCache() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestUserLockKey(t *testing.T) {
	if got := UserLockKey(42); got != "grade-api:lock:user:42" {
		t.Errorf("UserLockKey(42) = %q", got)
	}
}

func TestRedisLockerExclusive(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()
	const userID = 900001
	_ = c.Delete(ctx, UserLockKey(userID))

	locker := NewRedisLocker(c, 10*time.Second)
	unlock, err := locker.Lock(ctx, userID)
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	ttl, err := c.TTL(ctx, UserLockKey(userID))
	if err != nil || ttl <= 0 || ttl > 10*time.Second {
		t.Errorf("lock ttl = %v, %v", ttl, err)
	}

	short, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(short, userID); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second Lock() error = %v, want deadline exceeded", err)
	}

	unlock()
	if _, err := c.Get(ctx, UserLockKey(userID)); !errors.Is(err, ErrNotFound) {
		t.Errorf("key after unlock: err = %v, want ErrNotFound", err)
	}

	unlock, err = locker.Lock(ctx, userID)
	if err != nil {
		t.Fatalf("Lock() after unlock error = %v", err)
	}
	unlock()
}

func TestRedisLockerKeepsForeignLock(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()
	const userID = 900002
	key := UserLockKey(userID)
	_ = c.Delete(ctx, key)
	t.Cleanup(func() { _ = c.Delete(context.Background(), key) })

	locker := NewRedisLocker(c, 10*time.Second)
	unlock, err := locker.Lock(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}

	// simulate expiry and takeover by another process
	if err := c.Delete(ctx, key); err != nil {
		t.Fatal(err)
	}
	if ok, err := c.SetNX(ctx, key, "someone-else", 10*time.Second); err != nil || !ok {
		t.Fatalf("SetNX() = %t, %v", ok, err)
	}

	unlock()
	if got, err := c.Get(ctx, key); err != nil || got != "someone-else" {
		t.Errorf("foreign lock = %q, %v; want it left in place", got, err)
	}
}
