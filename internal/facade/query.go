package facade

import (
	"context"
	"fmt"

	"github.com/brindlecode/codemem/internal/hnsw"
	"github.com/brindlecode/codemem/internal/store"
)

const defaultQueryLimit = 10

// Query dispatches a query descriptor. Exact, prefix and keyword modes go
// straight to the store; semantic runs against the in-memory vector index;
// hybrid unions keyword hits with all rows under the descriptor's filters,
// deduped by id, keyword hits first.
func (s *Service) Query(ctx context.Context, d store.QueryDescriptor) ([]store.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Limit <= 0 {
		d.Limit = defaultQueryLimit
	}

	switch d.Type {
	case store.QuerySemantic:
		return s.querySemantic(d)
	case store.QueryHybrid:
		return s.queryHybrid(d)
	default:
		return s.store.Query(d)
	}
}

// querySemantic ranks entries by vector distance. Entries without an
// embedding are never indexed, so they are ignored rather than treated as
// infinitely distant. Namespace/type/tag/time filters are applied after
// the index search, over-fetching to compensate.
func (s *Service) querySemantic(d store.QueryDescriptor) ([]store.Entry, error) {
	if len(d.QueryEmbedding) == 0 {
		return nil, fmt.Errorf("%w: semantic query requires a queryEmbedding", store.ErrValidation)
	}

	k := d.Limit
	if d.Namespace != "" || d.MemoryType != "" || len(d.Tags) > 0 || d.CreatedAfter > 0 || d.CreatedBefore > 0 {
		k *= 4
	}
	hits, err := s.index.Search(d.QueryEmbedding, k, 0)
	if err != nil {
		return nil, err
	}

	var out []store.Entry
	for _, h := range hits {
		e, err := s.store.Get(h.ID)
		if err != nil {
			return nil, err
		}
		if e == nil || !matchesFilters(*e, d) {
			continue
		}
		out = append(out, *e)
		if len(out) == d.Limit {
			break
		}
	}
	return out, nil
}

func (s *Service) queryHybrid(d store.QueryDescriptor) ([]store.Entry, error) {
	kw := d
	kw.Type = store.QueryKeyword
	keywordHits, err := s.store.Query(kw)
	if err != nil {
		return nil, err
	}

	all := d
	all.Type = store.QueryKeyword
	all.Content = ""
	allRows, err := s.store.Query(all)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(keywordHits))
	out := make([]store.Entry, 0, d.Limit)
	for _, e := range keywordHits {
		if !seen[e.ID] {
			seen[e.ID] = true
			out = append(out, e)
		}
	}
	for _, e := range allRows {
		if len(out) == d.Limit {
			break
		}
		if !seen[e.ID] {
			seen[e.ID] = true
			out = append(out, e)
		}
	}
	if len(out) > d.Limit {
		out = out[:d.Limit]
	}
	return out, nil
}

func matchesFilters(e store.Entry, d store.QueryDescriptor) bool {
	if d.Namespace != "" && e.Namespace != d.Namespace {
		return false
	}
	if d.MemoryType != "" && e.Type != d.MemoryType {
		return false
	}
	if d.CreatedAfter > 0 && e.CreatedAt < d.CreatedAfter {
		return false
	}
	if d.CreatedBefore > 0 && e.CreatedAt > d.CreatedBefore {
		return false
	}
	for _, want := range d.Tags {
		found := false
		for _, t := range e.Tags {
			if t == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Search runs a k-NN query against the vector index and hydrates hits into
// full entries. An optional similarity threshold drops hits whose
// similarity (derived from the index metric's distance) falls below it;
// namespace and memory-type filters apply after hydration.
func (s *Service) Search(ctx context.Context, q []float32, opts store.SearchOptions) ([]store.SearchHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k := opts.K
	if k <= 0 {
		k = defaultQueryLimit
	}

	fetch := k
	if opts.Namespace != "" || opts.MemoryType != "" {
		fetch *= 4
	}
	hits, err := s.index.Search(q, fetch, 0)
	if err != nil {
		return nil, err
	}

	var out []store.SearchHit
	for _, h := range hits {
		if opts.HasThreshold && hnsw.SimilarityFromDistance(s.metric, h.Distance) < opts.Threshold {
			continue
		}
		e, err := s.store.Get(h.ID)
		if err != nil {
			return nil, err
		}
		if e == nil {
			continue
		}
		if opts.Namespace != "" && e.Namespace != opts.Namespace {
			continue
		}
		if opts.MemoryType != "" && e.Type != opts.MemoryType {
			continue
		}
		out = append(out, store.SearchHit{Entry: *e, Distance: h.Distance})
		if len(out) == k {
			break
		}
	}
	return out, nil
}
