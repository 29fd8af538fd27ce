package store

import (
	"database/sql"
	"fmt"
)

// migrate creates the schema additively: every ALTER TABLE is guarded by
// a column-existence probe, and nothing is ever dropped or rewritten in
// place, so any older database file upgrades cleanly.
func (s *Store) migrate() error {
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS entries (
			id               TEXT PRIMARY KEY,
			key              TEXT NOT NULL,
			namespace        TEXT NOT NULL,
			content          TEXT NOT NULL,
			type             TEXT NOT NULL DEFAULT 'semantic',
			tags             TEXT NOT NULL DEFAULT '[]',
			metadata         TEXT NOT NULL DEFAULT '{}',
			embedding        BLOB,
			access_level     TEXT NOT NULL DEFAULT 'default',
			created_at       INTEGER NOT NULL,
			updated_at       INTEGER NOT NULL,
			last_accessed_at INTEGER NOT NULL,
			version          INTEGER NOT NULL DEFAULT 1,
			access_count     INTEGER NOT NULL DEFAULT 0,
			"references"     TEXT NOT NULL DEFAULT '[]'
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_ns_key ON entries(namespace, key);
		CREATE INDEX IF NOT EXISTS idx_entries_namespace    ON entries(namespace);
		CREATE INDEX IF NOT EXISTS idx_entries_type         ON entries(type);
		CREATE INDEX IF NOT EXISTS idx_entries_created      ON entries(created_at);
		CREATE INDEX IF NOT EXISTS idx_entries_accessed     ON entries(last_accessed_at);

		CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
			content,
			key,
			tags,
			tokenize = '%s',
			content='entries',
			content_rowid='rowid'
		);

		CREATE TABLE IF NOT EXISTS sessions (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id        TEXT NOT NULL,
			project           TEXT NOT NULL,
			prompt            TEXT NOT NULL DEFAULT '',
			started_at        INTEGER NOT NULL,
			ended_at          INTEGER,
			observation_count INTEGER NOT NULL DEFAULT 0,
			summary           TEXT,
			status            TEXT NOT NULL DEFAULT 'active'
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_sid ON sessions(session_id);
		CREATE INDEX IF NOT EXISTS idx_sessions_project    ON sessions(project);

		CREATE TABLE IF NOT EXISTS user_prompts (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id    TEXT NOT NULL,
			prompt_number INTEGER NOT NULL,
			prompt_text   TEXT NOT NULL,
			created_at    INTEGER NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_prompts_sid_num ON user_prompts(session_id, prompt_number);
		CREATE INDEX IF NOT EXISTS idx_prompts_session        ON user_prompts(session_id);

		CREATE TABLE IF NOT EXISTS observations (
			id             TEXT PRIMARY KEY,
			session_id     TEXT NOT NULL,
			project        TEXT NOT NULL DEFAULT '',
			tool_name      TEXT NOT NULL DEFAULT '',
			tool_input     TEXT NOT NULL DEFAULT '',
			tool_response  TEXT NOT NULL DEFAULT '',
			cwd            TEXT NOT NULL DEFAULT '',
			timestamp      INTEGER NOT NULL,
			type           TEXT NOT NULL DEFAULT 'other',
			title          TEXT NOT NULL DEFAULT '',
			subtitle       TEXT NOT NULL DEFAULT '',
			narrative      TEXT NOT NULL DEFAULT '',
			files_read     TEXT NOT NULL DEFAULT '[]',
			files_modified TEXT NOT NULL DEFAULT '[]',
			facts          TEXT NOT NULL DEFAULT '[]',
			concepts       TEXT NOT NULL DEFAULT '[]',
			prompt_number  INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_obs_session ON observations(session_id);
		CREATE INDEX IF NOT EXISTS idx_obs_type    ON observations(type);
		CREATE INDEX IF NOT EXISTS idx_obs_ts      ON observations(timestamp DESC);

		CREATE TABLE IF NOT EXISTS session_summaries (
			session_id     TEXT PRIMARY KEY,
			project        TEXT NOT NULL DEFAULT '',
			request        TEXT NOT NULL DEFAULT '',
			completed      TEXT NOT NULL DEFAULT '',
			files_read     TEXT NOT NULL DEFAULT '[]',
			files_modified TEXT NOT NULL DEFAULT '[]',
			next_steps     TEXT NOT NULL DEFAULT '',
			notes          TEXT NOT NULL DEFAULT '',
			prompt_number  INTEGER NOT NULL DEFAULT 0,
			created_at     INTEGER NOT NULL
		);
	`, s.cfg.tokenizer())

	if _, err := s.execHook(s.db, schema); err != nil {
		return fmt.Errorf("schema: %w", err)
	}

	if err := s.ensureFTSTriggers(); err != nil {
		return err
	}

	return nil
}

// ensureFTSTriggers installs AFTER INSERT/UPDATE/DELETE triggers keeping
// entries_fts in parity with entries. Installation is idempotent: the
// trigger is probed in sqlite_master before creation.
func (s *Store) ensureFTSTriggers() error {
	var name string
	err := s.db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type='trigger' AND name='entries_fts_insert'`,
	).Scan(&name)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("probe fts trigger: %w", err)
	}

	triggers := `
		CREATE TRIGGER entries_fts_insert AFTER INSERT ON entries BEGIN
			INSERT INTO entries_fts(rowid, content, key, tags)
			VALUES (new.rowid, new.content, new.key, new.tags);
		END;

		CREATE TRIGGER entries_fts_delete AFTER DELETE ON entries BEGIN
			INSERT INTO entries_fts(entries_fts, rowid, content, key, tags)
			VALUES ('delete', old.rowid, old.content, old.key, old.tags);
		END;

		CREATE TRIGGER entries_fts_update AFTER UPDATE ON entries BEGIN
			INSERT INTO entries_fts(entries_fts, rowid, content, key, tags)
			VALUES ('delete', old.rowid, old.content, old.key, old.tags);
			INSERT INTO entries_fts(rowid, content, key, tags)
			VALUES (new.rowid, new.content, new.key, new.tags);
		END;
	`
	if _, err := s.execHook(s.db, triggers); err != nil {
		return fmt.Errorf("create fts triggers: %w", err)
	}
	return nil
}

// RebuildFtsIndex drops and repopulates the FTS table from the canonical
// entry rows, restoring FTS/row parity from scratch.
func (s *Store) RebuildFtsIndex() error {
	if err := s.requireInit(); err != nil {
		return err
	}
	if _, err := s.execHook(s.db, `INSERT INTO entries_fts(entries_fts) VALUES ('rebuild')`); err != nil {
		return fmt.Errorf("rebuild fts index: %w", err)
	}
	return nil
}
