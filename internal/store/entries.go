package store

import (
	"database/sql"
	"fmt"
)

// StoreEntry upserts an entry by id. A caller-supplied id is kept as-is;
// when empty, a new one is minted. Enforces the (namespace, key) ↔ id
// invariant: a conflict with a different existing id fails with
// ErrConflict.
func (s *Store) StoreEntry(e Entry) (Entry, error) {
	if err := s.requireInit(); err != nil {
		return Entry{}, err
	}
	if err := validateEntry(e); err != nil {
		return Entry{}, err
	}

	if e.ID == "" {
		e.ID = newID()
	}

	var existingID string
	err := s.db.QueryRow(
		`SELECT id FROM entries WHERE namespace = ? AND key = ?`,
		e.Namespace, e.Key,
	).Scan(&existingID)
	switch {
	case err == nil && existingID != e.ID:
		return Entry{}, fmt.Errorf("%w: namespace %q key %q already belongs to id %q", ErrConflict, e.Namespace, e.Key, existingID)
	case err != nil && err != sql.ErrNoRows:
		return Entry{}, fmt.Errorf("%w: %v", ErrStore, err)
	}

	now := nowMillis()
	if e.CreatedAt == 0 {
		e.CreatedAt = now
	}
	if e.UpdatedAt < e.CreatedAt {
		e.UpdatedAt = e.CreatedAt
	}
	if e.LastAccessedAt == 0 {
		e.LastAccessedAt = e.CreatedAt
	}
	if e.Version <= 0 {
		e.Version = 1
	}
	if e.AccessLevel == "" {
		e.AccessLevel = "default"
	}

	_, err = s.execHook(s.db, `
		INSERT INTO entries (id, key, namespace, content, type, tags, metadata, embedding, access_level,
		                      created_at, updated_at, last_accessed_at, version, access_count, "references")
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			key = excluded.key,
			namespace = excluded.namespace,
			content = excluded.content,
			type = excluded.type,
			tags = excluded.tags,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			access_level = excluded.access_level,
			updated_at = excluded.updated_at,
			"references" = excluded."references"
	`,
		e.ID, e.Key, e.Namespace, e.Content, string(e.Type),
		encodeTags(e.Tags), encodeMetadata(e.Metadata), encodeVector(e.Embedding), e.AccessLevel,
		e.CreatedAt, e.UpdatedAt, e.LastAccessedAt, e.Version, e.AccessCount, encodeRefs(e.References),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: store entry: %v", ErrStore, err)
	}
	return e, nil
}

func validateEntry(e Entry) error {
	if e.Key == "" {
		return fmt.Errorf("%w: key must not be empty", ErrValidation)
	}
	if len(e.Key) > MaxKeyLength {
		return fmt.Errorf("%w: key exceeds %d chars", ErrValidation, MaxKeyLength)
	}
	if e.Namespace == "" {
		return fmt.Errorf("%w: namespace must not be empty", ErrValidation)
	}
	if e.Content == "" {
		return fmt.Errorf("%w: content must not be empty", ErrValidation)
	}
	switch e.Type {
	case TypeSemantic, TypeEpisodic, TypeProcedural, "":
	default:
		return fmt.Errorf("%w: unknown type %q", ErrValidation, e.Type)
	}
	return nil
}

const entryColumns = `id, key, namespace, content, type, tags, metadata, embedding, access_level,
	created_at, updated_at, last_accessed_at, version, access_count, "references"`

func scanEntry(row interface{ Scan(dest ...any) error }) (Entry, error) {
	var e Entry
	var typ string
	var tags, metadata, refs string
	var embedding []byte
	if err := row.Scan(
		&e.ID, &e.Key, &e.Namespace, &e.Content, &typ, &tags, &metadata, &embedding, &e.AccessLevel,
		&e.CreatedAt, &e.UpdatedAt, &e.LastAccessedAt, &e.Version, &e.AccessCount, &refs,
	); err != nil {
		return Entry{}, err
	}
	e.Type = MemoryType(typ)
	e.Tags = decodeTags(tags)
	e.Metadata = decodeMetadata(metadata)
	e.Embedding = decodeVector(embedding)
	e.References = decodeRefs(refs)
	return e, nil
}

// Get retrieves an entry by id, incrementing its access count and
// last-accessed timestamp. Returns (nil, nil) when absent.
func (s *Store) Get(id string) (*Entry, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	row := s.db.QueryRow(`SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get entry: %v", ErrStore, err)
	}
	s.touch(e.ID)
	e.AccessCount++
	e.LastAccessedAt = nowMillis()
	return &e, nil
}

// GetByKey retrieves an entry by its (namespace, key) pair with the same
// touch-on-read contract as Get.
func (s *Store) GetByKey(namespace, key string) (*Entry, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	row := s.db.QueryRow(`SELECT `+entryColumns+` FROM entries WHERE namespace = ? AND key = ?`, namespace, key)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get entry by key: %v", ErrStore, err)
	}
	s.touch(e.ID)
	e.AccessCount++
	e.LastAccessedAt = nowMillis()
	return &e, nil
}

func (s *Store) touch(id string) {
	_, _ = s.execHook(s.db,
		`UPDATE entries SET access_count = access_count + 1, last_accessed_at = ? WHERE id = ?`,
		nowMillis(), id,
	)
}

// Update applies a partial patch to an entry by id: version increments,
// updatedAt refreshes. Returns (nil, nil) when id is unknown.
func (s *Store) Update(id string, patch EntryPatch) (*Entry, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	row := s.db.QueryRow(`SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: update: load: %v", ErrStore, err)
	}

	if patch.Content != nil {
		if *patch.Content == "" {
			return nil, fmt.Errorf("%w: content must not be empty", ErrValidation)
		}
		e.Content = *patch.Content
	}
	if patch.Type != nil {
		e.Type = *patch.Type
	}
	if patch.TagsSet {
		e.Tags = patch.Tags
	}
	if patch.MetadataSet {
		e.Metadata = patch.Metadata
	}
	if patch.Embedding != nil {
		e.Embedding = patch.Embedding
	}
	if patch.AccessLevel != nil {
		e.AccessLevel = *patch.AccessLevel
	}
	if patch.ReferenceSet {
		e.References = patch.References
	}
	e.Version++
	e.UpdatedAt = nowMillis()

	_, err = s.execHook(s.db, `
		UPDATE entries SET content = ?, type = ?, tags = ?, metadata = ?, embedding = ?,
		       access_level = ?, version = ?, updated_at = ?, "references" = ?
		WHERE id = ?
	`, e.Content, string(e.Type), encodeTags(e.Tags), encodeMetadata(e.Metadata), encodeVector(e.Embedding),
		e.AccessLevel, e.Version, e.UpdatedAt, encodeRefs(e.References), id,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: update entry: %v", ErrStore, err)
	}
	return &e, nil
}

// Delete removes an entry by id, reporting whether a row was removed.
func (s *Store) Delete(id string) (bool, error) {
	if err := s.requireInit(); err != nil {
		return false, err
	}
	res, err := s.execHook(s.db, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("%w: delete entry: %v", ErrStore, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// BulkInsert stores all entries in a single transaction, all-or-nothing.
// An empty slice is a no-op.
func (s *Store) BulkInsert(entries []Entry) error {
	if err := s.requireInit(); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.beginTxHook()
	if err != nil {
		return fmt.Errorf("%w: bulk insert: begin tx: %v", ErrStore, err)
	}
	defer func() { _ = tx.Rollback() }()

	now := nowMillis()
	for _, e := range entries {
		if err := validateEntry(e); err != nil {
			return err
		}
		if e.ID == "" {
			e.ID = newID()
		}
		if e.CreatedAt == 0 {
			e.CreatedAt = now
		}
		if e.UpdatedAt < e.CreatedAt {
			e.UpdatedAt = e.CreatedAt
		}
		if e.LastAccessedAt == 0 {
			e.LastAccessedAt = e.CreatedAt
		}
		if e.Version <= 0 {
			e.Version = 1
		}
		if e.AccessLevel == "" {
			e.AccessLevel = "default"
		}
		_, err := s.execHook(tx, `
			INSERT INTO entries (id, key, namespace, content, type, tags, metadata, embedding, access_level,
			                      created_at, updated_at, last_accessed_at, version, access_count, "references")
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			e.ID, e.Key, e.Namespace, e.Content, string(e.Type),
			encodeTags(e.Tags), encodeMetadata(e.Metadata), encodeVector(e.Embedding), e.AccessLevel,
			e.CreatedAt, e.UpdatedAt, e.LastAccessedAt, e.Version, e.AccessCount, encodeRefs(e.References),
		)
		if err != nil {
			return fmt.Errorf("%w: bulk insert entry %s: %v", ErrStore, e.ID, err)
		}
	}

	if err := s.commitHook(tx); err != nil {
		return fmt.Errorf("%w: bulk insert: commit: %v", ErrStore, err)
	}
	return nil
}

// BulkDelete removes all listed ids in a single transaction, returning the
// count actually removed.
func (s *Store) BulkDelete(ids []string) (int, error) {
	if err := s.requireInit(); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.beginTxHook()
	if err != nil {
		return 0, fmt.Errorf("%w: bulk delete: begin tx: %v", ErrStore, err)
	}
	defer func() { _ = tx.Rollback() }()

	total := 0
	for _, id := range ids {
		res, err := s.execHook(tx, `DELETE FROM entries WHERE id = ?`, id)
		if err != nil {
			return 0, fmt.Errorf("%w: bulk delete %s: %v", ErrStore, id, err)
		}
		n, _ := res.RowsAffected()
		total += int(n)
	}

	if err := s.commitHook(tx); err != nil {
		return 0, fmt.Errorf("%w: bulk delete: commit: %v", ErrStore, err)
	}
	return total, nil
}

// ListNamespaces returns the set of namespace strings currently in use.
func (s *Store) ListNamespaces() ([]string, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	rows, err := s.queryHook(s.db, `SELECT DISTINCT namespace FROM entries ORDER BY namespace`)
	if err != nil {
		return nil, fmt.Errorf("%w: list namespaces: %v", ErrStore, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, err
		}
		out = append(out, ns)
	}
	return out, rows.Err()
}

// Count returns the number of entries, optionally filtered by namespace.
func (s *Store) Count(namespace string) (int, error) {
	if err := s.requireInit(); err != nil {
		return 0, err
	}
	var n int
	var err error
	if namespace == "" {
		err = s.db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&n)
	} else {
		err = s.db.QueryRow(`SELECT COUNT(*) FROM entries WHERE namespace = ?`, namespace).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: count: %v", ErrStore, err)
	}
	return n, nil
}

// ClearNamespace deletes every entry in a namespace, returning the count
// deleted.
func (s *Store) ClearNamespace(namespace string) (int, error) {
	if err := s.requireInit(); err != nil {
		return 0, err
	}
	res, err := s.execHook(s.db, `DELETE FROM entries WHERE namespace = ?`, namespace)
	if err != nil {
		return 0, fmt.Errorf("%w: clear namespace: %v", ErrStore, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// EmbeddedEntry is the projection of an entry used to (re)populate an
// in-memory vector index: id, namespace, and the decoded embedding.
type EmbeddedEntry struct {
	ID        string
	Namespace string
	Embedding []float32
}

// EmbeddedEntries returns every entry that carries a non-empty embedding.
func (s *Store) EmbeddedEntries() ([]EmbeddedEntry, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	rows, err := s.queryHook(s.db,
		`SELECT id, namespace, embedding FROM entries WHERE embedding IS NOT NULL AND length(embedding) > 0`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: embedded entries: %v", ErrStore, err)
	}
	defer rows.Close()

	var out []EmbeddedEntry
	for rows.Next() {
		var e EmbeddedEntry
		var blob []byte
		if err := rows.Scan(&e.ID, &e.Namespace, &blob); err != nil {
			return nil, err
		}
		e.Embedding = decodeVector(blob)
		if len(e.Embedding) == 0 {
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetStats returns aggregate memory statistics.
func (s *Store) GetStats() (Stats, error) {
	if err := s.requireInit(); err != nil {
		return Stats{}, err
	}
	stats := Stats{
		EntriesByNamespace: map[string]int{},
		EntriesByType:      map[string]int{},
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&stats.TotalEntries); err != nil {
		return stats, fmt.Errorf("%w: stats: %v", ErrStore, err)
	}

	rows, err := s.queryHook(s.db, `SELECT namespace, COUNT(*) FROM entries GROUP BY namespace`)
	if err != nil {
		return stats, fmt.Errorf("%w: stats by namespace: %v", ErrStore, err)
	}
	for rows.Next() {
		var ns string
		var n int
		if err := rows.Scan(&ns, &n); err != nil {
			rows.Close()
			return stats, err
		}
		stats.EntriesByNamespace[ns] = n
	}
	rows.Close()

	rows, err = s.queryHook(s.db, `SELECT type, COUNT(*) FROM entries GROUP BY type`)
	if err != nil {
		return stats, fmt.Errorf("%w: stats by type: %v", ErrStore, err)
	}
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			rows.Close()
			return stats, err
		}
		stats.EntriesByType[t] = n
	}
	rows.Close()

	var pageCount, pageSize int64
	_ = s.db.QueryRow(`PRAGMA page_count`).Scan(&pageCount)
	_ = s.db.QueryRow(`PRAGMA page_size`).Scan(&pageSize)
	stats.MemoryUsage = pageCount * pageSize

	return stats, nil
}

// HealthCheck returns an aggregate status with per-component sub-statuses.
func (s *Store) HealthCheck() HealthStatus {
	hs := HealthStatus{
		SubStatuses:     map[string]string{},
		IsCjkOptimized:  s.cfg.tokenizer() == "trigram",
		ActiveTokenizer: s.cfg.tokenizer(),
	}
	if !s.initialized {
		hs.Healthy = false
		hs.SubStatuses["store"] = "not initialized"
		return hs
	}
	if err := s.db.Ping(); err != nil {
		hs.Healthy = false
		hs.SubStatuses["db"] = err.Error()
		return hs
	}
	hs.Healthy = true
	hs.SubStatuses["db"] = "ok"
	hs.SubStatuses["fts"] = "ok"
	return hs
}
