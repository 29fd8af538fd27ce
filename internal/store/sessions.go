package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// StartSession creates a new active session row.
func (s *Store) StartSession(sessionID, project, prompt string) (Session, error) {
	if err := s.requireInit(); err != nil {
		return Session{}, err
	}
	if sessionID == "" {
		return Session{}, fmt.Errorf("%w: sessionId must not be empty", ErrValidation)
	}

	now := nowMillis()
	res, err := s.execHook(s.db, `
		INSERT INTO sessions (session_id, project, prompt, started_at, observation_count, status)
		VALUES (?, ?, ?, ?, 0, ?)
	`, sessionID, project, prompt, now, string(SessionActive))
	if err != nil {
		if isUniqueViolation(err) {
			return Session{}, fmt.Errorf("%w: session %q already exists", ErrConflict, sessionID)
		}
		return Session{}, fmt.Errorf("%w: start session: %v", ErrStore, err)
	}
	id, _ := res.LastInsertId()

	return Session{
		ID:        id,
		SessionID: sessionID,
		Project:   project,
		Prompt:    prompt,
		StartedAt: now,
		Status:    SessionActive,
	}, nil
}

// GetSession retrieves a session by its external session id.
func (s *Store) GetSession(sessionID string) (*Session, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	row := s.db.QueryRow(`
		SELECT id, session_id, project, prompt, started_at, ended_at, observation_count, summary, status
		FROM sessions WHERE session_id = ?
	`, sessionID)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get session: %v", ErrStore, err)
	}
	return &sess, nil
}

func scanSession(row interface{ Scan(dest ...any) error }) (Session, error) {
	var sess Session
	var endedAt sql.NullInt64
	var summary sql.NullString
	var status string
	if err := row.Scan(
		&sess.ID, &sess.SessionID, &sess.Project, &sess.Prompt, &sess.StartedAt,
		&endedAt, &sess.ObservationCount, &summary, &status,
	); err != nil {
		return Session{}, err
	}
	if endedAt.Valid {
		v := endedAt.Int64
		sess.EndedAt = &v
	}
	if summary.Valid {
		v := summary.String
		sess.Summary = &v
	}
	sess.Status = SessionStatus(status)
	return sess, nil
}

// EndSession marks a session completed (or abandoned) and stamps endedAt.
func (s *Store) EndSession(sessionID string, status SessionStatus, summary string) error {
	if err := s.requireInit(); err != nil {
		return err
	}
	if status == "" {
		status = SessionCompleted
	}
	var summaryArg any
	if summary != "" {
		summaryArg = summary
	}
	res, err := s.execHook(s.db, `
		UPDATE sessions SET ended_at = ?, status = ?, summary = COALESCE(?, summary)
		WHERE session_id = ?
	`, nowMillis(), string(status), summaryArg, sessionID)
	if err != nil {
		return fmt.Errorf("%w: end session: %v", ErrStore, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: session %q", ErrNotFound, sessionID)
	}
	return nil
}

// IncrementObservationCount bumps a session's observation_count by one.
func (s *Store) IncrementObservationCount(sessionID string) error {
	if err := s.requireInit(); err != nil {
		return err
	}
	_, err := s.execHook(s.db,
		`UPDATE sessions SET observation_count = observation_count + 1 WHERE session_id = ?`,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("%w: increment observation count: %v", ErrStore, err)
	}
	return nil
}

// RecentSessions returns the most recently started sessions, newest first.
func (s *Store) RecentSessions(project string, limit int) ([]Session, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	var rows *sql.Rows
	var err error
	if project == "" {
		rows, err = s.queryHook(s.db, `
			SELECT id, session_id, project, prompt, started_at, ended_at, observation_count, summary, status
			FROM sessions ORDER BY started_at DESC, id DESC LIMIT ?
		`, limit)
	} else {
		rows, err = s.queryHook(s.db, `
			SELECT id, session_id, project, prompt, started_at, ended_at, observation_count, summary, status
			FROM sessions WHERE project = ? ORDER BY started_at DESC, id DESC LIMIT ?
		`, project, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: recent sessions: %v", ErrStore, err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// isUniqueViolation reports whether err came from a UNIQUE constraint
// violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint")
}
