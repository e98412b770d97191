package aggregation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLocalLockerSerializesSameUser(t *testing.T) {
	locker := NewLocalLocker()

	unlock, err := locker.Lock(context.Background(), 1)
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second Lock() error = %v, want deadline exceeded", err)
	}

	unlock()
	unlock() // second call is a no-op

	unlock, err = locker.Lock(context.Background(), 1)
	if err != nil {
		t.Fatalf("Lock() after unlock error = %v", err)
	}
	unlock()

	locker.mu.Lock()
	defer locker.mu.Unlock()
	if len(locker.locks) != 0 {
		t.Errorf("locks = %d entries after release, want 0", len(locker.locks))
	}
}

func TestLocalLockerIndependentUsers(t *testing.T) {
	locker := NewLocalLocker()

	unlock1, err := locker.Lock(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	defer unlock1()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlock2, err := locker.Lock(ctx, 2)
	if err != nil {
		t.Fatalf("Lock(user 2) error = %v, want nil while user 1 is held", err)
	}
	unlock2()
}

func TestLocalLockerMutualExclusion(t *testing.T) {
	locker := NewLocalLocker()

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), 5)
			if err != nil {
				t.Error(err)
				return
			}
			defer unlock()

			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxActive)
	}
}
