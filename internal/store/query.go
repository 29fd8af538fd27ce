package store

import (
	"fmt"
	"strings"
)

// Query dispatches to the retrieval mode named by d.Type. Results are
// ordered by updatedAt desc, then id asc as a deterministic tiebreak.
// QuerySemantic and QueryHybrid are delegated to the facade layer, which
// owns the HNSW index; Store itself can only rank by recency for those
// modes when no index is wired, so it falls back to keyword scan over
// Content in that case.
func (s *Store) Query(d QueryDescriptor) ([]Entry, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	switch d.Type {
	case QueryExact:
		return s.queryExact(d)
	case QueryPrefix:
		return s.queryPrefix(d)
	case QueryKeyword, "":
		return s.queryKeyword(d)
	case QuerySemantic, QueryHybrid:
		return s.queryKeyword(d)
	default:
		return nil, fmt.Errorf("%w: unknown query type %q", ErrValidation, d.Type)
	}
}

func (s *Store) queryExact(d QueryDescriptor) ([]Entry, error) {
	if d.Key == "" {
		return nil, fmt.Errorf("%w: exact query requires a key", ErrValidation)
	}
	e, err := s.GetByKey(d.Namespace, d.Key)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}
	return []Entry{*e}, nil
}

func (s *Store) queryPrefix(d QueryDescriptor) ([]Entry, error) {
	where, args := baseFilters(d)
	where = append(where, `key LIKE ? ESCAPE '\'`)
	args = append(args, escapeLike(d.KeyPrefix)+"%")

	limit := d.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`SELECT %s FROM entries WHERE %s ORDER BY updated_at DESC, id ASC LIMIT ?`,
		entryColumns, strings.Join(where, " AND "))
	args = append(args, limit)

	return s.runEntryQuery(query, args, d.Tags)
}

func (s *Store) queryKeyword(d QueryDescriptor) ([]Entry, error) {
	limit := d.Limit
	if limit <= 0 {
		limit = 50
	}

	if d.Content == "" {
		where, args := baseFilters(d)
		if len(where) == 0 {
			where = []string{"1=1"}
		}
		query := fmt.Sprintf(`SELECT %s FROM entries WHERE %s ORDER BY updated_at DESC, id ASC LIMIT ?`,
			entryColumns, strings.Join(where, " AND "))
		args = append(args, limit)
		return s.runEntryQuery(query, args, d.Tags)
	}

	where, args := baseFilters(d)
	where = append(where, `entries.rowid IN (SELECT rowid FROM entries_fts WHERE entries_fts MATCH ?)`)
	args = append(args, sanitizeFTS(d.Content))

	query := fmt.Sprintf(
		`SELECT %s FROM entries WHERE %s ORDER BY updated_at DESC, id ASC LIMIT ?`,
		qualifiedEntryColumns, strings.Join(where, " AND "),
	)
	args = append(args, limit)

	hits, err := s.runEntryQuery(query, args, d.Tags)
	if err != nil {
		// FTS5 query syntax errors surface as a parse failure rather than
		// a generic store error.
		return nil, fmt.Errorf("%w: keyword query: %v", ErrParse, err)
	}
	return hits, nil
}

// qualifiedEntryColumns is entryColumns with the table prefix needed once
// the query joins against entries_fts via a correlated subquery.
const qualifiedEntryColumns = `entries.id, entries.key, entries.namespace, entries.content, entries.type,
	entries.tags, entries.metadata, entries.embedding, entries.access_level,
	entries.created_at, entries.updated_at, entries.last_accessed_at, entries.version,
	entries.access_count, entries."references"`

func baseFilters(d QueryDescriptor) ([]string, []any) {
	var where []string
	var args []any
	if d.Namespace != "" {
		where = append(where, "namespace = ?")
		args = append(args, d.Namespace)
	}
	if d.MemoryType != "" {
		where = append(where, "type = ?")
		args = append(args, string(d.MemoryType))
	}
	if d.CreatedAfter > 0 {
		where = append(where, "created_at >= ?")
		args = append(args, d.CreatedAfter)
	}
	if d.CreatedBefore > 0 {
		where = append(where, "created_at <= ?")
		args = append(args, d.CreatedBefore)
	}
	if len(where) == 0 {
		where = []string{"1=1"}
	}
	return where, args
}

func (s *Store) runEntryQuery(query string, args []any, wantTags []string) ([]Entry, error) {
	rows, err := s.queryHook(s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrStore, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan entry: %v", ErrStore, err)
		}
		if containsAllTags(e.Tags, wantTags) {
			out = append(out, e)
		}
	}
	return out, rows.Err()
}

// escapeLike escapes LIKE metacharacters so a literal prefix never behaves
// as a wildcard pattern.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
