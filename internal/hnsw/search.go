package hnsw

import (
	"fmt"
	"sort"
	"time"
)

// Search returns up to k nearest neighbors of q, ascending distance. ef<=0
// uses the index's configured default. Returns an empty slice (never an
// error) when the index holds no live points.
func (x *Index) Search(q []float32, k int, ef int) ([]Hit, error) {
	return x.SearchWithFilters(q, k, ef, nil)
}

// SearchWithFilters is Search with an optional predicate applied to each
// candidate id during result extraction; the predicate may shrink the
// result below k.
func (x *Index) SearchWithFilters(q []float32, k int, ef int, filter func(id string) bool) ([]Hit, error) {
	if len(q) == 0 {
		return nil, ErrEmptyVector
	}
	if x.cfg.Dimensions > 0 && len(q) != x.cfg.Dimensions {
		return nil, fmt.Errorf("%w: expected %d dimensions, got %d", ErrDimensionMismatch, x.cfg.Dimensions, len(q))
	}
	if k <= 0 {
		k = 10
	}
	if ef <= 0 {
		ef = x.cfg.ef()
	}
	if ef < k {
		ef = k
	}

	start := time.Now()
	x.mu.RLock()
	defer func() {
		x.mu.RUnlock()
		x.recordSearchTime(time.Since(start))
	}()

	if x.entryPoint == -1 || x.liveCount == 0 {
		return []Hit{}, nil
	}

	ep := x.entryPoint
	epDist := x.dist(q, x.vectorOf(x.nodes[ep]))
	for lc := x.topLevel; lc > 0; lc-- {
		ep, epDist = x.greedyDescend(q, ep, epDist, lc)
	}
	_ = epDist

	candidates := x.searchLayer(q, ep, ef, 0)

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })

	out := make([]Hit, 0, k)
	for _, c := range candidates {
		n := x.nodes[c.idx]
		if n.deleted {
			continue
		}
		if filter != nil && !filter(n.id) {
			continue
		}
		out = append(out, Hit{ID: n.id, Distance: c.dist})
		if len(out) >= k {
			break
		}
	}
	if len(out) > x.liveCount {
		out = out[:x.liveCount]
	}
	return out, nil
}

func (x *Index) recordSearchTime(d time.Duration) {
	x.mu.Lock()
	x.searchCount++
	x.totalSearchNs += d.Nanoseconds()
	x.mu.Unlock()
}

// RemovePoint tombstones a node so future searches skip it, and elects a
// new entry point if the removed node was the current one. Returns whether
// a live point was removed.
func (x *Index) RemovePoint(id string) bool {
	x.mu.Lock()
	idx, ok := x.idToIdx[id]
	if !ok || x.nodes[idx].deleted {
		x.mu.Unlock()
		return false
	}

	x.nodes[idx].deleted = true
	x.liveCount--

	if idx == x.entryPoint {
		x.electEntryPoint()
	}
	x.mu.Unlock()

	x.emit("point:removed", map[string]any{"id": id})
	return true
}

// electEntryPoint picks the highest-layer remaining live node as the new
// entry point, or clears it when the graph is now empty. Caller must hold
// the write lock.
func (x *Index) electEntryPoint() {
	best := -1
	bestLevel := -1
	for i, n := range x.nodes {
		if n.deleted {
			continue
		}
		if n.level > bestLevel {
			best = i
			bestLevel = n.level
		}
	}
	x.entryPoint = best
	if best == -1 {
		x.topLevel = -1
	} else {
		x.topLevel = bestLevel
	}
}

// Rebuild discards all graph state and re-inserts every entry from
// scratch, emitting index:rebuilt with the elapsed build time and count.
func (x *Index) Rebuild(entries []VectorEntry) error {
	start := time.Now()
	x.Clear()
	for _, e := range entries {
		if err := x.AddPoint(e.ID, e.Vector); err != nil {
			return fmt.Errorf("rebuild: add %s: %w", e.ID, err)
		}
	}
	x.emit("index:rebuilt", map[string]any{
		"count":      len(entries),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return nil
}

// Clear drops all graph state and resets statistics.
func (x *Index) Clear() {
	x.mu.Lock()
	x.nodes = nil
	x.idToIdx = make(map[string]int)
	x.entryPoint = -1
	x.topLevel = -1
	x.liveCount = 0
	x.searchCount = 0
	x.totalSearchNs = 0
	x.mu.Unlock()
	x.emit("index:cleared", nil)
}

// GetStats returns aggregate index statistics.
func (x *Index) GetStats() Stats {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var mem int64
	for _, n := range x.nodes {
		mem += int64(len(n.raw))
		for _, layer := range n.neighbors {
			mem += int64(len(layer)) * 8
		}
	}

	var avg time.Duration
	if x.searchCount > 0 {
		avg = time.Duration(x.totalSearchNs / x.searchCount)
	}

	return Stats{
		VectorCount:      x.liveCount,
		MemoryUsage:      mem,
		AvgSearchTime:    avg,
		CompressionRatio: x.quant.compressionRatio(),
	}
}

// Len reports the number of live (non-tombstoned) points.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.liveCount
}
