package gateway

import (
	"sync"
	"testing"
	"time"
)

func TestLimiter_WindowResets(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if d := l.Allow("a"); !d.Allowed {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	d := l.Allow("a")
	if d.Allowed || d.Remaining != 0 {
		t.Errorf("third request: %+v", d)
	}
	if d.Reset != time.Minute {
		t.Errorf("Reset: got %s, want 1m", d.Reset)
	}

	now = now.Add(time.Minute)
	if d := l.Allow("a"); !d.Allowed || d.Remaining != 1 {
		t.Errorf("after window: %+v", d)
	}
}

func TestLimiter_ConcurrentBurstCountsExactly(t *testing.T) {
	l := NewLimiter(50, time.Hour)
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("burst").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if allowed != 50 {
		t.Errorf("allowed %d, want exactly 50", allowed)
	}
}
