package cache

import (
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c := New[int](10, time.Minute)

	c.Set("a", 42, 0)
	v, ok := c.Get("a")
	if !ok || v != 42 {
		t.Fatalf("expected (42,true), got (%d,%v)", v, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss for absent key")
	}
}

func TestCache_Overwrite(t *testing.T) {
	c := New[string](10, time.Minute)

	c.Set("k", "first", 0)
	c.Set("k", "second", 0)

	v, ok := c.Get("k")
	if !ok || v != "second" {
		t.Fatalf("expected overwritten value, got (%q,%v)", v, ok)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", c.Len())
	}
}

func TestCache_ExpiryWithoutSweeper(t *testing.T) {
	c := New[int](10, time.Minute)

	c.Set("short", 1, 100*time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	// No sweeper running; Get must enforce expiry on its own.
	if _, ok := c.Get("short"); ok {
		t.Fatal("expected entry to be expired")
	}
	if c.Has("short") {
		t.Fatal("Has must agree with Get on expiry")
	}
}

func TestCache_HasDoesNotCountStats(t *testing.T) {
	c := New[int](10, time.Minute)
	c.Set("k", 1, 0)

	c.Has("k")
	c.Has("nope")

	s := c.Stats()
	if s.TotalHits != 0 || s.TotalMisses != 0 {
		t.Fatalf("Has must not affect counters, got hits=%d misses=%d", s.TotalHits, s.TotalMisses)
	}
}

func TestCache_CapacityEviction(t *testing.T) {
	c := New[int](3, time.Minute)

	c.Set("a", 1, 0)
	time.Sleep(2 * time.Millisecond)
	c.Set("b", 2, 0)
	time.Sleep(2 * time.Millisecond)
	c.Set("c", 3, 0)
	time.Sleep(2 * time.Millisecond)

	// Touch "a" so "b" becomes the least recently accessed.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected hit for a")
	}
	time.Sleep(2 * time.Millisecond)

	c.Set("d", 4, 0)

	if c.Len() != 3 {
		t.Fatalf("cache exceeded bound: len=%d", c.Len())
	}
	if c.Has("b") {
		t.Fatal("expected least-recently-accessed entry b to be evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if !c.Has(k) {
			t.Fatalf("expected %q to survive eviction", k)
		}
	}
}

func TestCache_BoundHoldsUnderChurn(t *testing.T) {
	c := New[int](5, time.Minute)
	for i := 0; i < 100; i++ {
		c.Set(fmt.Sprintf("k%d", i), i, 0)
		if c.Len() > 5 {
			t.Fatalf("bound violated after %d inserts: len=%d", i+1, c.Len())
		}
	}
}

func TestCache_Stats(t *testing.T) {
	c := New[int](10, time.Minute)
	c.Set("a", 1, 0)

	c.Get("a")       // hit
	c.Get("a")       // hit
	c.Get("missing") // miss

	s := c.Stats()
	if s.TotalHits != 2 || s.TotalMisses != 1 {
		t.Fatalf("expected 2 hits / 1 miss, got %d/%d", s.TotalHits, s.TotalMisses)
	}
	if s.HitRate < 66 || s.HitRate > 67 {
		t.Fatalf("unexpected hit rate %f", s.HitRate)
	}
	if s.Items != 1 {
		t.Fatalf("expected 1 item, got %d", s.Items)
	}
	if s.EstimatedMemory <= 0 {
		t.Fatal("expected non-zero memory estimate")
	}
}

func TestCache_ClearResetsCounters(t *testing.T) {
	c := New[int](10, time.Minute)
	c.Set("a", 1, 0)
	c.Get("a")
	c.Get("missing")

	c.Clear()

	s := c.Stats()
	if s.Items != 0 || s.TotalHits != 0 || s.TotalMisses != 0 {
		t.Fatalf("expected clean stats after Clear, got %+v", s)
	}
}

func TestCache_DeleteIdempotent(t *testing.T) {
	c := New[int](10, time.Minute)
	c.Set("a", 1, 0)

	c.Delete("a")
	c.Delete("a") // no-op

	if c.Has("a") {
		t.Fatal("expected a to be gone")
	}
}

func TestCache_Sweeper(t *testing.T) {
	c := New[int](10, time.Minute)
	defer c.Stop()

	c.Set("short", 1, 30*time.Millisecond)
	c.StartSweeper(20 * time.Millisecond)

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if c.Len() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("sweeper did not purge expired entry, len=%d", c.Len())
}

func TestCache_StartSweeperIsIdempotent(t *testing.T) {
	c := New[int](10, time.Minute)
	defer c.Stop()

	c.StartSweeper(time.Hour)
	before := runtime.NumGoroutine()

	// Second and third calls must not spawn additional sweepers.
	c.StartSweeper(time.Hour)
	c.StartSweeper(time.Hour)
	time.Sleep(20 * time.Millisecond)

	if after := runtime.NumGoroutine(); after > before {
		t.Fatalf("goroutines grew from %d to %d on repeated StartSweeper", before, after)
	}

	c.mu.Lock()
	running := c.sweepRunning
	c.mu.Unlock()
	if !running {
		t.Fatalf("expected sweeper flagged as running")
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New[int](100, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", i%20)
				c.Set(key, i, 0)
				c.Get(key)
				if i%13 == 0 {
					c.Delete(key)
				}
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Fatalf("bound violated under concurrency: %d", c.Len())
	}
}
