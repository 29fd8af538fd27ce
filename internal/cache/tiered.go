package cache

// TieredCache wraps an L1 Cache with a pair of collaborator callbacks
// standing in for a slower backing tier: loader fetches a value absent
// from L1, writer persists a write-through. Statistics reflect L1 only.
type TieredCache[T any] struct {
	l1     *Cache[T]
	loader func(key string) (T, bool)
	writer func(key string, value T)
}

// NewTiered constructs a TieredCache over an already-configured L1.
func NewTiered[T any](l1 *Cache[T], loader func(key string) (T, bool), writer func(key string, value T)) *TieredCache[T] {
	return &TieredCache[T]{l1: l1, loader: loader, writer: writer}
}

// Get consults L1 first; on an L1 miss it falls through to loader, and a
// loader hit is promoted into L1 and emits l2:hit.
func (t *TieredCache[T]) Get(k string) (T, bool) {
	if v, ok := t.l1.Get(k); ok {
		return v, true
	}
	if t.loader == nil {
		var zero T
		return zero, false
	}
	v, ok := t.loader(k)
	if !ok {
		var zero T
		return zero, false
	}
	t.l1.Set(k, v, 0)
	t.l1.emit("l2:hit", map[string]any{"key": k})
	return v, true
}

// Set writes through: stores in L1 and invokes writer, emitting l2:write.
func (t *TieredCache[T]) Set(k string, v T) {
	t.l1.Set(k, v, 0)
	if t.writer != nil {
		t.writer(k, v)
	}
	t.l1.emit("l2:write", map[string]any{"key": k})
}

// Delete removes k from L1 only.
func (t *TieredCache[T]) Delete(k string) { t.l1.Delete(k) }

// Clear empties L1 only.
func (t *TieredCache[T]) Clear() { t.l1.Clear() }

// GetStats returns L1's statistics.
func (t *TieredCache[T]) GetStats() Stats { return t.l1.GetStats() }

// Shutdown stops L1's background cleanup task and clears its state.
func (t *TieredCache[T]) Shutdown() { t.l1.Shutdown() }
