package hnsw_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/brindlecode/codemem/internal/hnsw"
)

func vec(vals ...float32) []float32 { return vals }

func TestAddPoint_DimensionMismatch(t *testing.T) {
	idx := hnsw.New(hnsw.DefaultConfig(3))
	if err := idx.AddPoint("a", vec(1, 2)); !errors.Is(err, hnsw.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestAddPoint_EmptyVector(t *testing.T) {
	idx := hnsw.New(hnsw.DefaultConfig(3))
	if err := idx.AddPoint("a", nil); !errors.Is(err, hnsw.ErrEmptyVector) {
		t.Fatalf("expected ErrEmptyVector, got %v", err)
	}
}

func TestAddPoint_IndexFull(t *testing.T) {
	cfg := hnsw.DefaultConfig(2)
	cfg.MaxElements = 2
	idx := hnsw.New(cfg)

	if err := idx.AddPoint("a", vec(1, 0)); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := idx.AddPoint("b", vec(0, 1)); err != nil {
		t.Fatalf("add b: %v", err)
	}
	if err := idx.AddPoint("c", vec(1, 1)); !errors.Is(err, hnsw.ErrIndexFull) {
		t.Fatalf("expected ErrIndexFull, got %v", err)
	}
}

func TestSearch_EmptyIndexReturnsEmpty(t *testing.T) {
	idx := hnsw.New(hnsw.DefaultConfig(2))
	hits, err := idx.Search(vec(1, 0), 5, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits on empty index, got %v", hits)
	}
}

func TestSearch_FindsNearestByCosine(t *testing.T) {
	idx := hnsw.New(hnsw.DefaultConfig(2))
	points := map[string][]float32{
		"east":  {1, 0},
		"north": {0, 1},
		"west":  {-1, 0},
		"south": {0, -1},
	}
	for id, v := range points {
		if err := idx.AddPoint(id, v); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}

	hits, err := idx.Search(vec(0.9, 0.1), 1, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "east" {
		t.Fatalf("expected 'east' as nearest, got %+v", hits)
	}
}

func TestSearch_NeverExceedsLiveSize(t *testing.T) {
	idx := hnsw.New(hnsw.DefaultConfig(2))
	idx.AddPoint("a", vec(1, 0))
	idx.AddPoint("b", vec(0, 1))

	hits, err := idx.Search(vec(1, 0), 50, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) > 2 {
		t.Fatalf("expected at most 2 hits, got %d", len(hits))
	}
}

func TestSearchWithFilters_ShrinksResult(t *testing.T) {
	idx := hnsw.New(hnsw.DefaultConfig(2))
	idx.AddPoint("a", vec(1, 0))
	idx.AddPoint("b", vec(0.9, 0.1))
	idx.AddPoint("c", vec(0, 1))

	hits, err := idx.SearchWithFilters(vec(1, 0), 3, 0, func(id string) bool { return id == "a" })
	if err != nil {
		t.Fatalf("SearchWithFilters: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "a" {
		t.Fatalf("expected only 'a' to survive the filter, got %+v", hits)
	}
}

func TestRemovePoint_TombstonesAndExcludesFromSearch(t *testing.T) {
	idx := hnsw.New(hnsw.DefaultConfig(2))
	idx.AddPoint("a", vec(1, 0))
	idx.AddPoint("b", vec(0, 1))

	if ok := idx.RemovePoint("a"); !ok {
		t.Fatal("expected RemovePoint to report true for an existing point")
	}
	if ok := idx.RemovePoint("a"); ok {
		t.Fatal("expected RemovePoint to report false for an already-removed point")
	}

	hits, err := idx.Search(vec(1, 0), 5, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, h := range hits {
		if h.ID == "a" {
			t.Fatal("removed point should not appear in search results")
		}
	}
	if idx.Len() != 1 {
		t.Fatalf("expected 1 live point remaining, got %d", idx.Len())
	}
}

func TestRemovePoint_ElectsNewEntryPoint(t *testing.T) {
	idx := hnsw.New(hnsw.DefaultConfig(2))
	for i := 0; i < 20; i++ {
		idx.AddPoint(fmt.Sprintf("p%d", i), vec(float32(i), float32(-i)))
	}
	for i := 0; i < 19; i++ {
		idx.RemovePoint(fmt.Sprintf("p%d", i))
	}

	hits, err := idx.Search(vec(19, -19), 1, 0)
	if err != nil {
		t.Fatalf("Search after mass removal: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "p19" {
		t.Fatalf("expected the one surviving point, got %+v", hits)
	}
}

func TestRebuild_ReplacesAllState(t *testing.T) {
	idx := hnsw.New(hnsw.DefaultConfig(2))
	idx.AddPoint("old", vec(5, 5))

	err := idx.Rebuild([]hnsw.VectorEntry{
		{ID: "a", Vector: vec(1, 0)},
		{ID: "b", Vector: vec(0, 1)},
	})
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if idx.Len() != 2 {
		t.Fatalf("expected 2 points after rebuild, got %d", idx.Len())
	}
	hits, _ := idx.Search(vec(5, 5), 5, 0)
	for _, h := range hits {
		if h.ID == "old" {
			t.Fatal("rebuild should have discarded the previous point")
		}
	}
}

func TestClear_ResetsStats(t *testing.T) {
	idx := hnsw.New(hnsw.DefaultConfig(2))
	idx.AddPoint("a", vec(1, 0))
	idx.Search(vec(1, 0), 1, 0)

	idx.Clear()

	if idx.Len() != 0 {
		t.Fatalf("expected 0 points after clear, got %d", idx.Len())
	}
	stats := idx.GetStats()
	if stats.VectorCount != 0 || stats.AvgSearchTime != 0 {
		t.Fatalf("expected fully reset stats, got %+v", stats)
	}
}

func TestGetStats_CompressionRatioMatchesQuantization(t *testing.T) {
	cfg := hnsw.DefaultConfig(4)
	cfg.Quantization = hnsw.QuantizeBinary
	idx := hnsw.New(cfg)
	idx.AddPoint("a", vec(1, 1, 1, 1))

	stats := idx.GetStats()
	if stats.CompressionRatio != 32 {
		t.Fatalf("expected 32x compression ratio, got %v", stats.CompressionRatio)
	}
}

func TestAddPoint_OnEventFires(t *testing.T) {
	idx := hnsw.New(hnsw.DefaultConfig(2))
	var fired []string
	idx.OnEvent = func(name string, _ map[string]any) { fired = append(fired, name) }

	idx.AddPoint("a", vec(1, 0))
	idx.RemovePoint("a")

	if len(fired) != 2 || fired[0] != "point:added" || fired[1] != "point:removed" {
		t.Fatalf("expected [point:added point:removed], got %v", fired)
	}
}
