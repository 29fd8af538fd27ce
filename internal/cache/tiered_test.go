package cache_test

import (
	"testing"

	"github.com/brindlecode/codemem/internal/cache"
)

func TestTieredCache_L1HitSkipsLoader(t *testing.T) {
	l1 := cache.New(cache.Config[string]{MaxSize: 10})
	l1.Set("a", "from-l1", 0)

	called := false
	tc := cache.NewTiered(l1, func(k string) (string, bool) {
		called = true
		return "from-loader", true
	}, nil)

	v, ok := tc.Get("a")
	if !ok || v != "from-l1" {
		t.Fatalf("expected L1 hit 'from-l1', got %q ok=%v", v, ok)
	}
	if called {
		t.Fatal("expected loader not to be called on L1 hit")
	}
}

func TestTieredCache_L1MissFallsThroughAndPromotes(t *testing.T) {
	l1 := cache.New(cache.Config[string]{MaxSize: 10})
	tc := cache.NewTiered(l1, func(k string) (string, bool) {
		return "from-loader", true
	}, nil)

	v, ok := tc.Get("a")
	if !ok || v != "from-loader" {
		t.Fatalf("expected loader fallback 'from-loader', got %q ok=%v", v, ok)
	}

	if !l1.Has("a") {
		t.Fatal("expected loader hit to be promoted into L1")
	}
}

func TestTieredCache_LoaderMissReturnsFalse(t *testing.T) {
	l1 := cache.New(cache.Config[string]{MaxSize: 10})
	tc := cache.NewTiered(l1, func(k string) (string, bool) {
		return "", false
	}, nil)

	_, ok := tc.Get("missing")
	if ok {
		t.Fatal("expected loader miss to propagate as a miss")
	}
}

func TestTieredCache_NilLoaderIsMiss(t *testing.T) {
	l1 := cache.New(cache.Config[string]{MaxSize: 10})
	tc := cache.NewTiered[string](l1, nil, nil)

	_, ok := tc.Get("anything")
	if ok {
		t.Fatal("expected a miss with no loader configured")
	}
}

func TestTieredCache_SetWritesThroughToL1AndWriter(t *testing.T) {
	l1 := cache.New(cache.Config[string]{MaxSize: 10})
	var written map[string]string = map[string]string{}
	tc := cache.NewTiered(l1, nil, func(k, v string) {
		written[k] = v
	})

	tc.Set("a", "value")

	if v, _ := l1.Get("a"); v != "value" {
		t.Fatalf("expected L1 to hold the written value, got %q", v)
	}
	if written["a"] != "value" {
		t.Fatalf("expected writer invoked with the written value, got %q", written["a"])
	}
}

func TestTieredCache_SetToleratesNilWriter(t *testing.T) {
	l1 := cache.New(cache.Config[string]{MaxSize: 10})
	tc := cache.NewTiered[string](l1, nil, nil)

	tc.Set("a", "value")
	if v, _ := l1.Get("a"); v != "value" {
		t.Fatalf("expected L1 write even with nil writer, got %q", v)
	}
}

func TestTieredCache_DeleteAndClearScopeToL1(t *testing.T) {
	l1 := cache.New(cache.Config[string]{MaxSize: 10})
	tc := cache.NewTiered[string](l1, nil, nil)

	tc.Set("a", "1")
	tc.Set("b", "2")

	tc.Delete("a")
	if l1.Has("a") {
		t.Fatal("expected Delete to remove from L1")
	}

	tc.Clear()
	if l1.Has("b") {
		t.Fatal("expected Clear to empty L1")
	}
}

func TestTieredCache_GetStatsDelegatesToL1(t *testing.T) {
	l1 := cache.New(cache.Config[string]{MaxSize: 10})
	tc := cache.NewTiered[string](l1, nil, nil)

	tc.Set("a", "1")
	tc.Get("a")

	stats := tc.GetStats()
	if stats.Size != 1 || stats.Hits != 1 {
		t.Fatalf("expected stats delegated from L1, got %+v", stats)
	}
}

func TestTieredCache_ShutdownDelegatesToL1(t *testing.T) {
	l1 := cache.New(cache.Config[string]{MaxSize: 10})
	tc := cache.NewTiered[string](l1, nil, nil)

	tc.Set("a", "1")
	tc.Shutdown()

	if l1.Has("a") {
		t.Fatal("expected Shutdown to clear L1")
	}
}

func TestTieredCache_EventsFireOnL2HitAndWrite(t *testing.T) {
	l1 := cache.New(cache.Config[string]{MaxSize: 10})
	var fired []string
	l1.OnEvent(func(name string, _ map[string]any) { fired = append(fired, name) })

	tc := cache.NewTiered(l1, func(k string) (string, bool) {
		return "loaded", true
	}, func(k, v string) {})

	tc.Get("a")  // L1 miss -> loader hit -> l2:hit (and an internal cache:set from the promotion)
	tc.Set("b", "x") // l2:write (and an internal cache:set)

	var sawL2Hit, sawL2Write bool
	for _, name := range fired {
		if name == "l2:hit" {
			sawL2Hit = true
		}
		if name == "l2:write" {
			sawL2Write = true
		}
	}
	if !sawL2Hit {
		t.Fatalf("expected l2:hit to fire, got %v", fired)
	}
	if !sawL2Write {
		t.Fatalf("expected l2:write to fire, got %v", fired)
	}
}
