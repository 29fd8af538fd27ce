package store

import (
	"database/sql"
	"fmt"
)

// RecordPrompt appends a user prompt to a session, assigning it the next
// dense prompt number (1, 2, 3, ... with no gaps).
func (s *Store) RecordPrompt(sessionID, promptText string) (UserPrompt, error) {
	if err := s.requireInit(); err != nil {
		return UserPrompt{}, err
	}
	if sessionID == "" {
		return UserPrompt{}, fmt.Errorf("%w: sessionId must not be empty", ErrValidation)
	}

	tx, err := s.beginTxHook()
	if err != nil {
		return UserPrompt{}, fmt.Errorf("%w: record prompt: begin tx: %v", ErrStore, err)
	}
	defer func() { _ = tx.Rollback() }()

	var maxNum sql.NullInt64
	if err := tx.QueryRow(
		`SELECT MAX(prompt_number) FROM user_prompts WHERE session_id = ?`, sessionID,
	).Scan(&maxNum); err != nil {
		return UserPrompt{}, fmt.Errorf("%w: record prompt: max: %v", ErrStore, err)
	}
	next := 1
	if maxNum.Valid {
		next = int(maxNum.Int64) + 1
	}

	now := nowMillis()
	res, err := s.execHook(tx, `
		INSERT INTO user_prompts (session_id, prompt_number, prompt_text, created_at)
		VALUES (?, ?, ?, ?)
	`, sessionID, next, promptText, now)
	if err != nil {
		return UserPrompt{}, fmt.Errorf("%w: record prompt: insert: %v", ErrStore, err)
	}
	id, _ := res.LastInsertId()

	if err := s.commitHook(tx); err != nil {
		return UserPrompt{}, fmt.Errorf("%w: record prompt: commit: %v", ErrStore, err)
	}

	return UserPrompt{
		ID:           id,
		SessionID:    sessionID,
		PromptNumber: next,
		PromptText:   promptText,
		CreatedAt:    now,
	}, nil
}

// PromptsForSession returns every prompt recorded for a session, ordered by
// prompt number ascending.
func (s *Store) PromptsForSession(sessionID string) ([]UserPrompt, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	rows, err := s.queryHook(s.db, `
		SELECT id, session_id, prompt_number, prompt_text, created_at
		FROM user_prompts WHERE session_id = ? ORDER BY prompt_number ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: prompts for session: %v", ErrStore, err)
	}
	defer rows.Close()

	var out []UserPrompt
	for rows.Next() {
		var p UserPrompt
		if err := rows.Scan(&p.ID, &p.SessionID, &p.PromptNumber, &p.PromptText, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RecentPromptsForProject returns the most recent prompts across all
// sessions belonging to a project, newest first, joining through
// sessions since user_prompts itself carries no project column.
func (s *Store) RecentPromptsForProject(project string, limit int) ([]UserPrompt, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.queryHook(s.db, `
		SELECT up.id, up.session_id, up.prompt_number, up.prompt_text, up.created_at
		FROM user_prompts up
		JOIN sessions s ON s.session_id = up.session_id
		WHERE s.project = ?
		ORDER BY up.created_at DESC LIMIT ?
	`, project, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: recent prompts for project: %v", ErrStore, err)
	}
	defer rows.Close()

	var out []UserPrompt
	for rows.Next() {
		var p UserPrompt
		if err := rows.Scan(&p.ID, &p.SessionID, &p.PromptNumber, &p.PromptText, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LatestPromptNumber returns the highest prompt number recorded for a
// session, or 0 if none exist.
func (s *Store) LatestPromptNumber(sessionID string) (int, error) {
	if err := s.requireInit(); err != nil {
		return 0, err
	}
	var maxNum sql.NullInt64
	if err := s.db.QueryRow(
		`SELECT MAX(prompt_number) FROM user_prompts WHERE session_id = ?`, sessionID,
	).Scan(&maxNum); err != nil {
		return 0, fmt.Errorf("%w: latest prompt number: %v", ErrStore, err)
	}
	if !maxNum.Valid {
		return 0, nil
	}
	return int(maxNum.Int64), nil
}
