package service

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestUserLocks_SerializesSameUser(t *testing.T) {
	locks := NewUserLocks()
	var inside, maxInside int32

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("alice")
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxInside)
	}
	if locks.size() != 0 {
		t.Errorf("lock table size = %d after all unlocks, want 0", locks.size())
	}
}

func TestUserLocks_DifferentUsersDoNotBlock(t *testing.T) {
	locks := NewUserLocks()
	unlockA := locks.Lock("alice")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("bob")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("locking bob blocked while alice was held")
	}
}
