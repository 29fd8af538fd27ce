package cache_test

import (
	"testing"
	"time"

	"github.com/brindlecode/codemem/internal/cache"
)

func TestSetAndGet(t *testing.T) {
	c := cache.New(cache.Config[string]{MaxSize: 10})
	c.Set("a", "hello", 0)

	v, ok := c.Get("a")
	if !ok || v != "hello" {
		t.Fatalf("expected hit with 'hello', got %q ok=%v", v, ok)
	}
}

func TestGet_MissOnUnknownKey(t *testing.T) {
	c := cache.New(cache.Config[string]{MaxSize: 10})
	_, ok := c.Get("nope")
	if ok {
		t.Fatal("expected miss for unknown key")
	}
}

func TestGet_ExpiredEntryTreatedAsAbsent(t *testing.T) {
	c := cache.New(cache.Config[string]{MaxSize: 10})
	c.Set("a", "hello", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("a")
	if ok {
		t.Fatal("expected expired entry to be treated as absent")
	}
	if c.Has("a") {
		t.Fatal("Has should also respect TTL")
	}
}

func TestSet_ReplaceIsNotAnEviction(t *testing.T) {
	c := cache.New(cache.Config[string]{MaxSize: 10})
	c.Set("a", "one", 0)
	c.Set("a", "two", 0)

	stats := c.GetStats()
	if stats.Evictions != 0 {
		t.Fatalf("expected 0 evictions from a replace, got %d", stats.Evictions)
	}
	v, _ := c.Get("a")
	if v != "two" {
		t.Fatalf("expected replaced value, got %q", v)
	}
}

func TestSet_EvictsLRUTailOverCapacity(t *testing.T) {
	c := cache.New(cache.Config[string]{MaxSize: 2})
	c.Set("a", "1", 0)
	c.Set("b", "2", 0)
	c.Set("c", "3", 0)

	if c.Has("a") {
		t.Fatal("expected the least-recently-used entry 'a' to be evicted")
	}
	stats := c.GetStats()
	if stats.Evictions != 1 {
		t.Fatalf("expected 1 eviction, got %d", stats.Evictions)
	}
}

func TestGet_RefreshesLRUOrder(t *testing.T) {
	c := cache.New(cache.Config[string]{MaxSize: 2})
	c.Set("a", "1", 0)
	c.Set("b", "2", 0)
	c.Get("a") // a is now most-recently-used
	c.Set("c", "3", 0)

	if !c.Has("a") {
		t.Fatal("expected 'a' to survive eviction after being refreshed by Get")
	}
	if c.Has("b") {
		t.Fatal("expected 'b' to be evicted as the new LRU tail")
	}
}

func TestDelete(t *testing.T) {
	c := cache.New(cache.Config[string]{MaxSize: 10})
	c.Set("a", "1", 0)
	c.Delete("a")
	if c.Has("a") {
		t.Fatal("expected 'a' to be gone after Delete")
	}
}

func TestClear(t *testing.T) {
	c := cache.New(cache.Config[string]{MaxSize: 10})
	c.Set("a", "1", 0)
	c.Set("b", "2", 0)
	c.Clear()

	stats := c.GetStats()
	if stats.Size != 0 {
		t.Fatalf("expected empty cache after Clear, got size %d", stats.Size)
	}
}

func TestWarmUp_DoesNotCountEvictions(t *testing.T) {
	c := cache.New(cache.Config[string]{MaxSize: 2})
	c.WarmUp(map[string]string{"a": "1", "b": "2", "c": "3"})

	stats := c.GetStats()
	if stats.Evictions != 0 {
		t.Fatalf("expected warmUp evictions to go uncounted, got %d", stats.Evictions)
	}
}

func TestInvalidatePattern_Regex(t *testing.T) {
	c := cache.New(cache.Config[string]{MaxSize: 10})
	c.Set("user:1", "a", 0)
	c.Set("user:2", "b", 0)
	c.Set("order:1", "c", 0)

	n := c.InvalidatePattern(`^user:\d+$`)
	if n != 2 {
		t.Fatalf("expected 2 keys invalidated, got %d", n)
	}
	if c.Has("order:1") == false {
		t.Fatal("expected unrelated key to survive")
	}
}

func TestInvalidatePattern_LiteralSubstringFallback(t *testing.T) {
	c := cache.New(cache.Config[string]{MaxSize: 10})
	c.Set("a[1]", "x", 0)
	c.Set("b[1]", "y", 0)

	// "[" does not compile as a regexp, so it must fall back to literal
	// substring matching rather than failing.
	n := c.InvalidatePattern("[")
	if n != 2 {
		t.Fatal("expected literal substring fallback to match both keys")
	}
}

func TestGetStats_HitRate(t *testing.T) {
	c := cache.New(cache.Config[string]{MaxSize: 10})
	c.Set("a", "1", 0)
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	stats := c.GetStats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Fatalf("expected 2 hits 1 miss, got %d/%d", stats.Hits, stats.Misses)
	}
	want := 2.0 / 3.0
	if diff := stats.HitRate - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected hit rate %v, got %v", want, stats.HitRate)
	}
}

func TestGetStats_HitRateZeroWhenNoRequests(t *testing.T) {
	c := cache.New(cache.Config[string]{MaxSize: 10})
	stats := c.GetStats()
	if stats.HitRate != 0 {
		t.Fatalf("expected 0 hit rate with no requests, got %v", stats.HitRate)
	}
}

func TestShutdown_StopsCleanupAndClears(t *testing.T) {
	c := cache.New(cache.Config[string]{MaxSize: 10, CleanupInterval: time.Millisecond})
	c.Set("a", "1", 0)
	c.Shutdown()

	stats := c.GetStats()
	if stats.Size != 0 {
		t.Fatalf("expected cache cleared after shutdown, got size %d", stats.Size)
	}
}

func TestEvents_FireOnLifecycle(t *testing.T) {
	c := cache.New(cache.Config[string]{MaxSize: 1})
	var fired []string
	c.OnEvent(func(name string, _ map[string]any) { fired = append(fired, name) })

	c.Set("a", "1", 0)
	c.Get("a")
	c.Get("missing")
	c.Set("b", "2", 0) // evicts a
	c.Delete("b")

	want := []string{"cache:set", "cache:hit", "cache:miss", "cache:evict", "cache:set", "cache:delete"}
	if len(fired) != len(want) {
		t.Fatalf("expected events %v, got %v", want, fired)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Fatalf("event %d: expected %q, got %q (full: %v)", i, want[i], fired[i], fired)
		}
	}
}
