// Package facade exposes the memory service as a single entry point: it
// owns the storage engine, the hot-entry cache and the HNSW vector index,
// threads the current session through writes, forwards component events
// onto one bus, and shuts the stack down in order (cache, index, store).
package facade

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brindlecode/codemem/internal/cache"
	"github.com/brindlecode/codemem/internal/cfg"
	"github.com/brindlecode/codemem/internal/hnsw"
	"github.com/brindlecode/codemem/internal/store"
)

// cache keys carry a NUL-separated scheme so namespaces and keys that
// contain "/" never collide.
const (
	cacheKeySep  = "\x00"
	cacheByID    = "id"
	cacheByNsKey = "key"
)

func idCacheKey(id string) string { return cacheByID + cacheKeySep + id }

func nsCacheKey(namespace, key string) string {
	return cacheByNsKey + cacheKeySep + namespace + cacheKeySep + key
}

// Service is the facade over store, cache and index. All exported methods
// are safe for concurrent use.
type Service struct {
	cfg    cfg.Config
	log    *zap.Logger
	store  *store.Store
	l1     *cache.Cache[store.Entry]
	tiered *cache.TieredCache[store.Entry]
	index  *hnsw.Index
	metric hnsw.Metric
	bus    *Bus

	mu      sync.Mutex
	current *store.Session
}

// Option customizes Service construction.
type Option func(*Service)

// WithLogger sets the structured logger; nil falls back to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// New builds the full stack from configuration: opens the store, sizes the
// cache, constructs the index and loads every persisted embedding into it.
func New(c cfg.Config, opts ...Option) (*Service, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("facade: config: %w", err)
	}

	st, err := store.New(store.Config{
		BaseDir:      c.Storage.BaseDir,
		DBFileName:   c.Storage.DBFile,
		FTSTokenizer: c.Storage.Tokenizer,
	})
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:    c,
		store:  st,
		metric: hnsw.Metric(c.Index.Metric),
		bus:    NewBus(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}

	s.index = hnsw.New(hnsw.Config{
		Dimensions:     c.Index.Dimensions,
		M:              c.Index.M,
		EfConstruction: c.Index.EfConstruction,
		EfSearch:       c.Index.EfSearch,
		MaxElements:    c.Index.MaxElements,
		Metric:         s.metric,
		Quantization:   hnsw.Quantization(c.Index.Quantization),
	})
	s.index.OnEvent = func(name string, payload map[string]any) {
		s.bus.Publish(Event{Name: name, Payload: payload})
	}

	s.l1 = cache.New[store.Entry](cache.Config[store.Entry]{
		MaxSize:         c.Cache.MaxSize,
		MaxMemory:       c.Cache.MaxMemory,
		DefaultTTL:      c.Cache.TTL,
		CleanupInterval: c.Cache.CleanupInterval,
	})
	s.l1.OnEvent(func(name string, payload map[string]any) {
		s.bus.Publish(Event{Name: name, Payload: payload})
	})
	s.tiered = cache.NewTiered[store.Entry](s.l1, s.cacheLoad, nil)

	if err := s.loadIndex(); err != nil {
		_ = st.Close()
		return nil, err
	}
	return s, nil
}

// Events returns the service-wide event bus.
func (s *Service) Events() *Bus { return s.bus }

// Store exposes the underlying storage engine for collaborators (hook
// pipeline, tool handlers) that need record types the facade does not
// re-wrap.
func (s *Service) Store() *store.Store { return s.store }

// loadIndex rebuilds the in-memory graph from every persisted embedding.
func (s *Service) loadIndex() error {
	embedded, err := s.store.EmbeddedEntries()
	if err != nil {
		return err
	}
	if len(embedded) == 0 {
		return nil
	}
	vectors := make([]hnsw.VectorEntry, 0, len(embedded))
	for _, e := range embedded {
		if len(e.Embedding) != s.cfg.Index.Dimensions {
			s.log.Warn("skipping persisted embedding with wrong dimension",
				zap.String("id", e.ID), zap.Int("got", len(e.Embedding)), zap.Int("want", s.cfg.Index.Dimensions))
			continue
		}
		vectors = append(vectors, hnsw.VectorEntry{ID: e.ID, Vector: e.Embedding})
	}
	return s.index.Rebuild(vectors)
}

// cacheLoad is the tiered cache's second-level loader: it decodes the
// cache-key scheme and reads through to the store. Store reads touch the
// entry's access count; cache hits within TTL intentionally do not, since
// the cache holds weak copies that may go stale until the next write.
func (s *Service) cacheLoad(key string) (store.Entry, bool) {
	parts := strings.Split(key, cacheKeySep)
	var e *store.Entry
	var err error
	switch {
	case len(parts) == 2 && parts[0] == cacheByID:
		e, err = s.store.Get(parts[1])
	case len(parts) == 3 && parts[0] == cacheByNsKey:
		e, err = s.store.GetByKey(parts[1], parts[2])
	default:
		return store.Entry{}, false
	}
	if err != nil {
		s.log.Warn("cache loader read failed", zap.String("key", key), zap.Error(err))
		return store.Entry{}, false
	}
	if e == nil {
		return store.Entry{}, false
	}
	return *e, true
}

// StoreEntry persists the entry, indexes its embedding when present,
// refreshes both cache keys, and publishes entry:stored.
func (s *Service) StoreEntry(ctx context.Context, e store.Entry) (store.Entry, error) {
	if err := ctx.Err(); err != nil {
		return store.Entry{}, err
	}
	stored, err := s.store.StoreEntry(e)
	if err != nil {
		return store.Entry{}, err
	}

	if len(stored.Embedding) > 0 {
		if err := s.index.AddPoint(stored.ID, stored.Embedding); err != nil {
			return store.Entry{}, err
		}
	} else {
		s.index.RemovePoint(stored.ID)
	}

	s.l1.Set(idCacheKey(stored.ID), stored, 0)
	s.l1.Set(nsCacheKey(stored.Namespace, stored.Key), stored, 0)

	s.bus.Publish(Event{Name: "entry:stored", Payload: map[string]any{
		"id": stored.ID, "namespace": stored.Namespace, "key": stored.Key,
	}})
	return stored, nil
}

// Get returns the entry by id, consulting the cache before the store.
// Returns (nil, nil) when absent.
func (s *Service) Get(ctx context.Context, id string) (*store.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e, ok := s.tiered.Get(idCacheKey(id)); ok {
		out := e
		return &out, nil
	}
	return s.store.Get(id)
}

// GetByKey returns the entry by (namespace, key), consulting the cache
// before the store. Returns (nil, nil) when absent.
func (s *Service) GetByKey(ctx context.Context, namespace, key string) (*store.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e, ok := s.tiered.Get(nsCacheKey(namespace, key)); ok {
		out := e
		return &out, nil
	}
	return s.store.GetByKey(namespace, key)
}

// Update applies a partial patch, re-indexes when the embedding changed,
// invalidates stale cache copies, and publishes entry:updated. Returns
// (nil, nil) when id is unknown.
func (s *Service) Update(ctx context.Context, id string, patch store.EntryPatch) (*store.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	updated, err := s.store.Update(id, patch)
	if err != nil || updated == nil {
		return updated, err
	}

	if patch.Embedding != nil {
		if err := s.index.AddPoint(updated.ID, updated.Embedding); err != nil {
			return nil, err
		}
	}

	s.l1.Set(idCacheKey(updated.ID), *updated, 0)
	s.l1.Set(nsCacheKey(updated.Namespace, updated.Key), *updated, 0)

	s.bus.Publish(Event{Name: "entry:updated", Payload: map[string]any{
		"id": updated.ID, "version": updated.Version,
	}})
	return updated, nil
}

// Delete removes the entry, its index point and its cache copies,
// reporting whether a record existed.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var nsKey string
	if e, ok := s.l1.Get(idCacheKey(id)); ok {
		nsKey = nsCacheKey(e.Namespace, e.Key)
	} else if e, err := s.store.Get(id); err == nil && e != nil {
		nsKey = nsCacheKey(e.Namespace, e.Key)
	}

	removed, err := s.store.Delete(id)
	if err != nil {
		return false, err
	}
	s.index.RemovePoint(id)
	s.tiered.Delete(idCacheKey(id))
	if nsKey != "" {
		s.tiered.Delete(nsKey)
	}
	if removed {
		s.bus.Publish(Event{Name: "entry:deleted", Payload: map[string]any{"id": id}})
	}
	return removed, nil
}

// GetOrCreate returns the entry under (namespace, key) when it exists;
// otherwise it constructs one via factory, forces the pair onto it, and
// stores it.
func (s *Service) GetOrCreate(ctx context.Context, namespace, key string, factory func() (store.Entry, error)) (*store.Entry, error) {
	existing, err := s.GetByKey(ctx, namespace, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	e, err := factory()
	if err != nil {
		return nil, fmt.Errorf("facade: get-or-create factory: %w", err)
	}
	e.Namespace = namespace
	e.Key = key
	stored, err := s.StoreEntry(ctx, e)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// BulkInsert stores all entries transactionally, then indexes their
// embeddings. Index failures after a committed store write are logged and
// skipped; the affected entries stay reachable through keyword search.
func (s *Service) BulkInsert(ctx context.Context, entries []store.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.BulkInsert(entries); err != nil {
		return err
	}
	for _, e := range entries {
		if len(e.Embedding) == 0 || e.ID == "" {
			continue
		}
		if err := s.index.AddPoint(e.ID, e.Embedding); err != nil {
			s.log.Warn("bulk insert: indexing failed", zap.String("id", e.ID), zap.Error(err))
		}
	}
	return nil
}

// BulkDelete removes the listed ids transactionally, then drops their
// index points and cache copies.
func (s *Service) BulkDelete(ctx context.Context, ids []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var nsKeys []string
	for _, id := range ids {
		if e, ok := s.l1.Get(idCacheKey(id)); ok {
			nsKeys = append(nsKeys, nsCacheKey(e.Namespace, e.Key))
		} else if e, err := s.store.Get(id); err == nil && e != nil {
			nsKeys = append(nsKeys, nsCacheKey(e.Namespace, e.Key))
		}
	}
	n, err := s.store.BulkDelete(ids)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.index.RemovePoint(id)
		s.l1.InvalidatePattern(id)
	}
	for _, k := range nsKeys {
		s.tiered.Delete(k)
	}
	return n, nil
}

// ListNamespaces returns the namespaces currently in use.
func (s *Service) ListNamespaces(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListNamespaces()
}

// Count returns the number of entries, optionally scoped to a namespace.
func (s *Service) Count(ctx context.Context, namespace string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.store.Count(namespace)
}

// ClearNamespace deletes every entry in a namespace, drops their index
// points, and clears the cache.
func (s *Service) ClearNamespace(ctx context.Context, namespace string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	embedded, err := s.store.EmbeddedEntries()
	if err != nil {
		return 0, err
	}
	n, err := s.store.ClearNamespace(namespace)
	if err != nil {
		return 0, err
	}
	for _, e := range embedded {
		if e.Namespace == namespace {
			s.index.RemovePoint(e.ID)
		}
	}
	s.tiered.Clear()
	return n, nil
}

// Stats aggregates per-component statistics.
type Stats struct {
	Store store.Stats `json:"store"`
	Index hnsw.Stats  `json:"index"`
	Cache cache.Stats `json:"cache"`
}

// GetStats returns store, index and cache statistics in one view.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	st, err := s.store.GetStats()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Store: st,
		Index: s.index.GetStats(),
		Cache: s.tiered.GetStats(),
	}, nil
}

// HealthCheck extends the store's health report with index and cache
// sub-statuses.
func (s *Service) HealthCheck(ctx context.Context) store.HealthStatus {
	hs := s.store.HealthCheck()
	hs.SubStatuses["index"] = fmt.Sprintf("%d vectors", s.index.Len())
	hs.SubStatuses["cache"] = fmt.Sprintf("%d entries", s.tiered.GetStats().Size)
	return hs
}

// StartSession opens a new session and makes it current. An empty
// sessionID mints one.
func (s *Service) StartSession(ctx context.Context, sessionID, project, prompt string) (store.Session, error) {
	if err := ctx.Err(); err != nil {
		return store.Session{}, err
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	sess, err := s.store.StartSession(sessionID, project, prompt)
	if err != nil {
		return store.Session{}, err
	}

	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()

	s.bus.Publish(Event{Name: "session:started", Payload: map[string]any{
		"sessionId": sess.SessionID, "project": sess.Project,
	}})
	return sess, nil
}

// GetCurrentSession returns the active session, or nil when none has been
// started.
func (s *Service) GetCurrentSession() *store.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	out := *s.current
	return &out
}

// Checkpoint records a labeled marker observation on the current session.
// Fails with ErrNoActiveSession when no session is active.
func (s *Service) Checkpoint(ctx context.Context, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cur := s.GetCurrentSession()
	if cur == nil {
		return store.ErrNoActiveSession
	}
	_, err := s.store.AddObservation(store.Observation{
		SessionID: cur.SessionID,
		Project:   cur.Project,
		ToolName:  "checkpoint",
		Type:      store.ObsOther,
		Title:     "Checkpoint: " + label,
	})
	return err
}

// EndSession completes the current session with the given summary text
// and clears the current-session state.
func (s *Service) EndSession(ctx context.Context, summary string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cur := s.GetCurrentSession()
	if cur == nil {
		return store.ErrNoActiveSession
	}
	if err := s.store.EndSession(cur.SessionID, store.SessionCompleted, summary); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	s.bus.Publish(Event{Name: "session:ended", Payload: map[string]any{
		"sessionId": cur.SessionID,
	}})
	return nil
}

// GetRecentSessions returns the most recently started sessions, newest
// first, optionally scoped to a project.
func (s *Service) GetRecentSessions(ctx context.Context, project string, limit int) ([]store.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.RecentSessions(project, limit)
}

// Shutdown drains the stack in order: cache sweep first, then the index
// graph, then the database connection.
func (s *Service) Shutdown(ctx context.Context) error {
	s.tiered.Shutdown()
	s.index.Clear()
	return s.store.Close()
}
