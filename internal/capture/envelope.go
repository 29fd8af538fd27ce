// Package capture implements the hook pipeline: it normalizes per-tool
// invocation envelopes from a host process, classifies and enriches them
// into durable Observations, and folds a session's Observations into a
// SessionSummary at session end.
package capture

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// HookEnvelope is the raw JSON-per-line record a host process emits for
// each session-start, prompt-submit, tool-use or session-end event.
type HookEnvelope struct {
	SessionID      string         `json:"session_id"`
	Cwd            string         `json:"cwd"`
	Prompt         string         `json:"prompt"`
	ToolName       string         `json:"tool_name"`
	ToolInput      map[string]any `json:"tool_input"`
	ToolResult     map[string]any `json:"tool_result"`
	TranscriptPath string         `json:"transcript_path"`
	StopReason     string         `json:"stop_reason"`
}

// Record is the normalized, always-valid form of a HookEnvelope: fields
// the pipeline needs are synthesized when the host omits them, and
// malformed JSON degrades to a bare record rather than propagating a
// parse error.
type Record struct {
	SessionID      string
	Cwd            string
	Project        string
	Prompt         string
	ToolName       string
	ToolInput      map[string]any
	ToolResult     map[string]any
	TranscriptPath string
	StopReason     string
	Timestamp      int64
}

// Parse normalizes a raw hook envelope. It never returns an error: on
// malformed JSON it falls back to a minimal record carrying only a
// synthesized sessionId, cwd, project and timestamp, matching the
// pipeline's "must not throw" contract.
func Parse(raw []byte) Record {
	now := time.Now().UTC().UnixMilli()

	var env HookEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		cwd := processCwd()
		return Record{
			SessionID: synthesizeSessionID(),
			Cwd:       cwd,
			Project:   projectFromCwd(cwd),
			Timestamp: now,
		}
	}

	cwd := env.Cwd
	if cwd == "" {
		cwd = processCwd()
	}
	sessionID := env.SessionID
	if sessionID == "" {
		sessionID = synthesizeSessionID()
	}

	return Record{
		SessionID:      sessionID,
		Cwd:            cwd,
		Project:        projectFromCwd(cwd),
		Prompt:         env.Prompt,
		ToolName:       env.ToolName,
		ToolInput:      env.ToolInput,
		ToolResult:     env.ToolResult,
		TranscriptPath: env.TranscriptPath,
		StopReason:     env.StopReason,
		Timestamp:      now,
	}
}

func processCwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return wd
}

// projectFromCwd takes the last path segment of cwd as the project name,
// falling back to "unknown" when cwd is empty or ends with a separator
// (a trailing separator means there is no last segment to take).
func projectFromCwd(cwd string) string {
	if cwd == "" || strings.HasSuffix(cwd, "/") || strings.HasSuffix(cwd, "\\") {
		return "unknown"
	}
	base := filepath.Base(cwd)
	if base == "." || base == string(filepath.Separator) {
		return "unknown"
	}
	return base
}

// synthesizeSessionID mints a fallback session id when the host omits
// one. Not cryptographically unique — good enough for a single hook
// invocation that otherwise has no session to attach to.
func synthesizeSessionID() string {
	return "hook-" + time.Now().UTC().Format("20060102T150405.000000000")
}
