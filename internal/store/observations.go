package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// AddObservation persists a captured tool invocation and bumps its
// session's observation_count in the same transaction.
func (s *Store) AddObservation(o Observation) (Observation, error) {
	if err := s.requireInit(); err != nil {
		return Observation{}, err
	}
	if o.SessionID == "" {
		return Observation{}, fmt.Errorf("%w: sessionId must not be empty", ErrValidation)
	}
	if o.ID == "" {
		o.ID = newID()
	}
	if o.Timestamp == 0 {
		o.Timestamp = nowMillis()
	}
	if o.Type == "" {
		o.Type = ObsOther
	}

	tx, err := s.beginTxHook()
	if err != nil {
		return Observation{}, fmt.Errorf("%w: add observation: begin tx: %v", ErrStore, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = s.execHook(tx, `
		INSERT INTO observations (id, session_id, project, tool_name, tool_input, tool_response, cwd,
		                          timestamp, type, title, subtitle, narrative, files_read, files_modified,
		                          facts, concepts, prompt_number)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		o.ID, o.SessionID, o.Project, o.ToolName, o.ToolInput, o.ToolResponse, o.Cwd,
		o.Timestamp, string(o.Type), o.Title, o.Subtitle, o.Narrative,
		encodeTags(o.FilesRead), encodeTags(o.FilesModified), encodeTags(o.Facts), encodeTags(o.Concepts),
		o.PromptNumber,
	)
	if err != nil {
		return Observation{}, fmt.Errorf("%w: add observation: insert: %v", ErrStore, err)
	}

	if _, err := s.execHook(tx,
		`UPDATE sessions SET observation_count = observation_count + 1 WHERE session_id = ?`, o.SessionID,
	); err != nil {
		return Observation{}, fmt.Errorf("%w: add observation: bump count: %v", ErrStore, err)
	}

	if err := s.commitHook(tx); err != nil {
		return Observation{}, fmt.Errorf("%w: add observation: commit: %v", ErrStore, err)
	}
	return o, nil
}

func scanObservation(row interface{ Scan(dest ...any) error }) (Observation, error) {
	var o Observation
	var typ string
	var filesRead, filesModified, facts, concepts string
	var promptNumber sql.NullInt64
	if err := row.Scan(
		&o.ID, &o.SessionID, &o.Project, &o.ToolName, &o.ToolInput, &o.ToolResponse, &o.Cwd,
		&o.Timestamp, &typ, &o.Title, &o.Subtitle, &o.Narrative,
		&filesRead, &filesModified, &facts, &concepts, &promptNumber,
	); err != nil {
		return Observation{}, err
	}
	o.Type = ObservationType(typ)
	o.FilesRead = decodeTags(filesRead)
	o.FilesModified = decodeTags(filesModified)
	o.Facts = decodeTags(facts)
	o.Concepts = decodeTags(concepts)
	if promptNumber.Valid {
		v := int(promptNumber.Int64)
		o.PromptNumber = &v
	}
	return o, nil
}

const observationColumns = `id, session_id, project, tool_name, tool_input, tool_response, cwd,
	timestamp, type, title, subtitle, narrative, files_read, files_modified, facts, concepts, prompt_number`

// GetObservation retrieves a single observation by id, or (nil, nil) when
// absent.
func (s *Store) GetObservation(id string) (*Observation, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	row := s.db.QueryRow(`SELECT `+observationColumns+` FROM observations WHERE id = ?`, id)
	o, err := scanObservation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get observation: %v", ErrStore, err)
	}
	return &o, nil
}

// UpdateObservationEnrichment overwrites the subtitle/narrative/facts/
// concepts fields on an existing observation, the write path an
// out-of-band EnrichmentOracle call lands its result through.
func (s *Store) UpdateObservationEnrichment(id, subtitle, narrative string, facts, concepts []string) error {
	if err := s.requireInit(); err != nil {
		return err
	}
	res, err := s.execHook(s.db, `
		UPDATE observations SET subtitle = ?, narrative = ?, facts = ?, concepts = ?
		WHERE id = ?
	`, subtitle, narrative, encodeTags(facts), encodeTags(concepts), id)
	if err != nil {
		return fmt.Errorf("%w: update observation enrichment: %v", ErrStore, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: observation %q", ErrNotFound, id)
	}
	return nil
}

// ObservationsForSession returns every observation recorded for a session,
// oldest first.
func (s *Store) ObservationsForSession(sessionID string) ([]Observation, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	rows, err := s.queryHook(s.db,
		`SELECT `+observationColumns+` FROM observations WHERE session_id = ? ORDER BY timestamp ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: observations for session: %v", ErrStore, err)
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// RecentObservationsForProject returns the most recently captured
// observations across all sessions for a project, newest first, used to
// seed a session-start context payload.
func (s *Store) RecentObservationsForProject(project string, limit int) ([]Observation, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.queryHook(s.db,
		`SELECT `+observationColumns+` FROM observations WHERE project = ? ORDER BY timestamp DESC LIMIT ?`,
		project, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: recent observations for project: %v", ErrStore, err)
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Timeline returns observations for a session with timestamps strictly
// between afterTs and beforeTs (both bounds exclusive), zero bounds meaning
// unbounded, oldest first, supporting progressive-disclosure paging.
func (s *Store) Timeline(sessionID string, afterTs, beforeTs int64, limit int) ([]Observation, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	where := []string{"session_id = ?"}
	args := []any{sessionID}
	if afterTs > 0 {
		where = append(where, "timestamp > ?")
		args = append(args, afterTs)
	}
	if beforeTs > 0 {
		where = append(where, "timestamp < ?")
		args = append(args, beforeTs)
	}
	args = append(args, limit)

	query := fmt.Sprintf(
		`SELECT %s FROM observations WHERE %s ORDER BY timestamp ASC LIMIT ?`,
		observationColumns, strings.Join(where, " AND "),
	)
	rows, err := s.queryHook(s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: timeline: %v", ErrStore, err)
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
