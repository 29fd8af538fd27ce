package hnsw

import (
	"container/heap"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Hit pairs an id with its distance to a query vector, ascending distance
// meaning closer.
type Hit struct {
	ID       string
	Distance float64
}

// VectorEntry is one (id, vector) pair accepted by Rebuild.
type VectorEntry struct {
	ID     string
	Vector []float32
}

// Stats is the aggregate view returned by GetStats.
type Stats struct {
	VectorCount      int
	MemoryUsage      int64
	AvgSearchTime    time.Duration
	CompressionRatio float64
}

type node struct {
	id        string
	raw       []byte
	neighbors [][]int // neighbors[level] holds this node's peers at that level
	level     int
	deleted   bool
}

// Index is an in-process HNSW approximate nearest-neighbor graph.
// Structural mutations (addPoint, removePoint, rebuild, clear) take an
// exclusive lock; searches take a shared lock and read a consistent
// snapshot of the node/neighbor slices.
type Index struct {
	mu    sync.RWMutex
	cfg   Config
	quant quantizer
	dist  func(a, b []float32) float64

	nodes      []*node
	idToIdx    map[string]int
	entryPoint int
	topLevel   int
	liveCount  int

	searchCount   int64
	totalSearchNs int64

	// OnEvent, when set, is called for addPoint/removePoint/rebuild/clear
	// lifecycle events. Never called while holding the index lock.
	OnEvent func(name string, payload map[string]any)

	rnd *rand.Rand
}

// New constructs an empty index for the given configuration.
func New(cfg Config) *Index {
	if cfg.M <= 0 {
		cfg.M = 16
	}
	if cfg.MaxElements <= 0 {
		cfg.MaxElements = 1_000_000
	}
	return &Index{
		cfg:        cfg,
		quant:      newQuantizer(cfg),
		dist:       distanceFunc(cfg.Metric),
		idToIdx:    make(map[string]int),
		entryPoint: -1,
		topLevel:   -1,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (x *Index) emit(name string, payload map[string]any) {
	if x.OnEvent != nil {
		x.OnEvent(name, payload)
	}
}

func (x *Index) randomLevel() int {
	mult := x.cfg.levelMultiplier()
	level := int(math.Floor(-math.Log(x.rnd.Float64()+1e-12) * mult))
	const maxLevel = 32
	if level > maxLevel {
		level = maxLevel
	}
	return level
}

// vectorOf decodes a node's stored (possibly quantized) vector.
func (x *Index) vectorOf(n *node) []float32 {
	return x.quant.decode(n.raw, x.cfg.Dimensions)
}

// AddPoint inserts or replaces the vector stored under id.
func (x *Index) AddPoint(id string, vector []float32) error {
	if len(vector) == 0 {
		return ErrEmptyVector
	}
	if x.cfg.Dimensions > 0 && len(vector) != x.cfg.Dimensions {
		return fmt.Errorf("%w: expected %d dimensions, got %d", ErrDimensionMismatch, x.cfg.Dimensions, len(vector))
	}

	x.mu.Lock()

	if idx, ok := x.idToIdx[id]; ok {
		n := x.nodes[idx]
		wasDeleted := n.deleted
		n.raw = x.quant.encode(vector)
		n.deleted = false
		if wasDeleted {
			x.liveCount++
		}
		x.mu.Unlock()
		x.emit("point:added", map[string]any{"id": id, "replaced": true})
		return nil
	}

	if x.liveCount >= x.cfg.MaxElements {
		x.mu.Unlock()
		return ErrIndexFull
	}

	if x.cfg.Dimensions == 0 {
		x.cfg.Dimensions = len(vector)
	}

	level := x.randomLevel()
	n := &node{
		id:        id,
		raw:       x.quant.encode(vector),
		level:     level,
		neighbors: make([][]int, level+1),
	}
	idx := len(x.nodes)
	x.nodes = append(x.nodes, n)
	x.idToIdx[id] = idx
	x.liveCount++

	if x.entryPoint == -1 {
		x.entryPoint = idx
		x.topLevel = level
		x.mu.Unlock()
		x.emit("point:added", map[string]any{"id": id, "replaced": false})
		return nil
	}

	ep := x.entryPoint
	epDist := x.dist(vector, x.vectorOf(x.nodes[ep]))

	for lc := x.topLevel; lc > level; lc-- {
		ep, epDist = x.greedyDescend(vector, ep, epDist, lc)
	}

	maxConn := x.cfg.maxConnections()
	for lc := minInt(level, x.topLevel); lc >= 0; lc-- {
		candidates := x.searchLayer(vector, ep, x.cfg.efConstruction(), lc)
		selected := x.selectNeighborsHeuristic(candidates, maxConn)

		n.neighbors[lc] = selected
		for _, peerIdx := range selected {
			x.addBidirectional(idx, peerIdx, lc, maxConn)
		}
		if len(candidates) > 0 {
			ep = candidates[0].idx
			epDist = candidates[0].dist
		}
	}

	if level > x.topLevel {
		x.topLevel = level
		x.entryPoint = idx
	}

	x.mu.Unlock()
	x.emit("point:added", map[string]any{"id": id, "replaced": false})
	return nil
}

func (x *Index) addBidirectional(a, b, level int, maxConn int) {
	peer := x.nodes[b]
	if level > peer.level {
		// peer has no presence at this level; skip linking.
		return
	}
	peer.neighbors[level] = appendUnique(peer.neighbors[level], a)
	if len(peer.neighbors[level]) > maxConn {
		peerVec := x.vectorOf(peer)
		cands := make([]candidate, 0, len(peer.neighbors[level]))
		for _, nb := range peer.neighbors[level] {
			cands = append(cands, candidate{idx: nb, dist: x.dist(peerVec, x.vectorOf(x.nodes[nb]))})
		}
		peer.neighbors[level] = x.selectNeighborsHeuristic(cands, maxConn)
	}
}

func appendUnique(s []int, v int) []int {
	for _, e := range s {
		if e == v {
			return s
		}
	}
	return append(s, v)
}

// greedyDescend walks from ep toward the nearest neighbor reachable at
// layer lc, stopping when no neighbor improves on the current best.
func (x *Index) greedyDescend(q []float32, ep int, epDist float64, lc int) (int, float64) {
	improved := true
	for improved {
		improved = false
		n := x.nodes[ep]
		if lc >= len(n.neighbors) {
			break
		}
		for _, nbIdx := range n.neighbors[lc] {
			if x.nodes[nbIdx].deleted {
				continue
			}
			d := x.dist(q, x.vectorOf(x.nodes[nbIdx]))
			if d < epDist {
				ep = nbIdx
				epDist = d
				improved = true
			}
		}
	}
	return ep, epDist
}

// searchLayer runs an ef-bounded best-first search at layer lc, returning
// candidates ordered by ascending distance.
func (x *Index) searchLayer(q []float32, ep int, ef int, lc int) []candidate {
	visited := map[int]bool{ep: true}

	epDist := x.dist(q, x.vectorOf(x.nodes[ep]))
	candidates := &minHeap{{idx: ep, dist: epDist}}
	heap.Init(candidates)

	results := &maxHeap{}
	if !x.nodes[ep].deleted {
		heap.Push(results, candidate{idx: ep, dist: epDist})
	}

	for candidates.Len() > 0 {
		cur := heap.Pop(candidates).(candidate)
		if results.Len() >= ef && cur.dist > (*results)[0].dist {
			break
		}

		n := x.nodes[cur.idx]
		if lc >= len(n.neighbors) {
			continue
		}
		for _, nbIdx := range n.neighbors[lc] {
			if visited[nbIdx] {
				continue
			}
			visited[nbIdx] = true
			nb := x.nodes[nbIdx]
			d := x.dist(q, x.vectorOf(nb))

			if results.Len() < ef || d < (*results)[0].dist {
				heap.Push(candidates, candidate{idx: nbIdx, dist: d})
				if !nb.deleted {
					heap.Push(results, candidate{idx: nbIdx, dist: d})
					if results.Len() > ef {
						heap.Pop(results)
					}
				}
			}
		}
	}

	out := make([]candidate, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(candidate)
	}
	return out
}

// selectNeighborsHeuristic picks up to maxConn candidates, preferring
// diversity: a candidate is kept only if it is closer to the query than it
// is to every neighbor already selected, falling back to filling remaining
// slots by raw distance once the diverse set is exhausted.
func (x *Index) selectNeighborsHeuristic(candidates []candidate, maxConn int) []int {
	if len(candidates) == 0 {
		return nil
	}

	selected := make([]candidate, 0, maxConn)
	var leftover []candidate

	for _, c := range candidates {
		if len(selected) >= maxConn {
			leftover = append(leftover, c)
			continue
		}
		cVec := x.vectorOf(x.nodes[c.idx])
		diverse := true
		for _, s := range selected {
			if x.dist(cVec, x.vectorOf(x.nodes[s.idx])) < c.dist {
				diverse = false
				break
			}
		}
		if diverse {
			selected = append(selected, c)
		} else {
			leftover = append(leftover, c)
		}
	}

	for _, c := range leftover {
		if len(selected) >= maxConn {
			break
		}
		selected = append(selected, c)
	}

	ids := make([]int, len(selected))
	for i, c := range selected {
		ids[i] = c.idx
	}
	return ids
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
