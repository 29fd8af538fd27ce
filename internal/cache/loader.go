package cache

import "time"

// GetOrSet returns the cached value for k; on a miss it invokes loader
// exactly once even when multiple goroutines request the same key
// concurrently (single-flight), caching and returning its result to every
// waiter.
func (c *Cache[T]) GetOrSet(k string, ttl time.Duration, loader func() (T, error)) (T, error) {
	if v, ok := c.Get(k); ok {
		return v, nil
	}

	c.mu.Lock()
	if el, ok := c.items[k]; ok && !el.Value.(*cacheItem[T]).expired(time.Now()) {
		val := el.Value.(*cacheItem[T]).value
		c.mu.Unlock()
		return val, nil
	}
	if call, inFlight := c.inflight[k]; inFlight {
		c.mu.Unlock()
		call.wg.Wait()
		return call.val, call.err
	}

	call := &inflightCall[T]{}
	call.wg.Add(1)
	c.inflight[k] = call
	c.mu.Unlock()

	val, err := loader()
	if err == nil {
		c.Set(k, val, ttl)
	}
	call.val, call.err = val, err

	c.mu.Lock()
	delete(c.inflight, k)
	c.mu.Unlock()
	call.wg.Done()

	return val, err
}

// Prefetch computes the subset of keys missing from the cache, invokes
// batchLoader with only that missing subset exactly once, and caches each
// returned pair.
func (c *Cache[T]) Prefetch(keys []string, ttl time.Duration, batchLoader func(missing []string) (map[string]T, error)) error {
	var missing []string
	for _, k := range keys {
		if !c.Has(k) {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	results, err := batchLoader(missing)
	if err != nil {
		return err
	}
	for k, v := range results {
		c.Set(k, v, ttl)
	}
	return nil
}
