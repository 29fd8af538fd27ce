package store

import (
	"database/sql"
	"fmt"
)

// SaveSummary upserts the session_summaries row for a session; a session
// has at most one summary and a later save replaces the earlier one.
func (s *Store) SaveSummary(sum SessionSummary) error {
	if err := s.requireInit(); err != nil {
		return err
	}
	if sum.SessionID == "" {
		return fmt.Errorf("%w: sessionId must not be empty", ErrValidation)
	}
	if sum.CreatedAt == 0 {
		sum.CreatedAt = nowMillis()
	}

	_, err := s.execHook(s.db, `
		INSERT INTO session_summaries (session_id, project, request, completed, files_read, files_modified,
		                                next_steps, notes, prompt_number, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			project = excluded.project,
			request = excluded.request,
			completed = excluded.completed,
			files_read = excluded.files_read,
			files_modified = excluded.files_modified,
			next_steps = excluded.next_steps,
			notes = excluded.notes,
			prompt_number = excluded.prompt_number
	`,
		sum.SessionID, sum.Project, sum.Request, sum.Completed,
		encodeTags(sum.FilesRead), encodeTags(sum.FilesModified), sum.NextSteps, sum.Notes,
		sum.PromptNumber, sum.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: save summary: %v", ErrStore, err)
	}
	return nil
}

// GetSummary retrieves the session_summaries row for a session, or
// (nil, nil) when absent.
func (s *Store) GetSummary(sessionID string) (*SessionSummary, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	row := s.db.QueryRow(`
		SELECT session_id, project, request, completed, files_read, files_modified,
		       next_steps, notes, prompt_number, created_at
		FROM session_summaries WHERE session_id = ?
	`, sessionID)

	var sum SessionSummary
	var filesRead, filesModified string
	err := row.Scan(
		&sum.SessionID, &sum.Project, &sum.Request, &sum.Completed,
		&filesRead, &filesModified, &sum.NextSteps, &sum.Notes, &sum.PromptNumber, &sum.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get summary: %v", ErrStore, err)
	}
	sum.FilesRead = decodeTags(filesRead)
	sum.FilesModified = decodeTags(filesModified)
	return &sum, nil
}
