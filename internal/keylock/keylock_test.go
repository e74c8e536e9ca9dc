package keylock

import (
	"sync"
	"testing"
)

func TestLock_SerializesSameKey(t *testing.T) {
	l := New()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("cart-1")
			defer unlock()
			v := counter
			v++
			counter = v
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("expected 50 increments, got %d", counter)
	}
	if l.Len() != 0 {
		t.Fatalf("expected lock table to drain, got %d entries", l.Len())
	}
}

func TestLockAll_OverlappingSets(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock := l.LockAll([]string{"a", "b", "c"})
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := l.LockAll([]string{"c", "a", "a"})
			unlock()
		}()
	}
	wg.Wait()

	if l.Len() != 0 {
		t.Fatalf("expected lock table to drain, got %d entries", l.Len())
	}
}

func TestUnlock_Idempotent(t *testing.T) {
	l := New()
	unlock := l.Lock("k")
	unlock()
	unlock()

	// must not block
	l.Lock("k")()
}
