package capture

import (
	"fmt"
	"strings"

	"github.com/brindlecode/codemem/internal/store"
)

const (
	maxRequestChars     = 500
	maxPromptFoldChars  = 200
	maxSummaryFilePaths = 20
	maxSummaryCommands  = 5
	maxCommandChars     = 80
)

// BuildSummary folds a session's prompts and observations into a
// structured SessionSummary. It is pure over its inputs so the rollup can
// be unit-tested without a database.
func BuildSummary(sessionID, project string, prompts []store.UserPrompt, observations []store.Observation) store.SessionSummary {
	sum := store.SessionSummary{
		SessionID:    sessionID,
		Project:      project,
		Request:      foldPrompts(prompts),
		PromptNumber: len(prompts),
	}

	var reads, writes, execs, searches int
	seenRead := map[string]bool{}
	seenWrite := map[string]bool{}
	var commands []string

	for _, o := range observations {
		switch o.Type {
		case store.ObsRead:
			reads++
		case store.ObsWrite:
			writes++
		case store.ObsExecute:
			execs++
		case store.ObsSearch:
			searches++
		}
		for _, f := range o.FilesRead {
			if !seenRead[f] && len(sum.FilesRead) < maxSummaryFilePaths {
				seenRead[f] = true
				sum.FilesRead = append(sum.FilesRead, f)
			}
		}
		for _, f := range o.FilesModified {
			if !seenWrite[f] && len(sum.FilesModified) < maxSummaryFilePaths {
				seenWrite[f] = true
				sum.FilesModified = append(sum.FilesModified, f)
			}
		}
		if o.Type == store.ObsExecute && len(commands) < maxSummaryCommands {
			if cmd := commandFromInput(o.ToolInput); cmd != "" {
				commands = append(commands, truncateRunes(cmd, maxCommandChars))
			}
		}
	}

	sum.Completed = fmt.Sprintf("%d file(s) modified, %d file(s) read, %d command(s) executed, %d search(es)",
		writes, reads, execs, searches)
	sum.Notes = strings.Join(commands, "; ")
	return sum
}

// foldPrompts concatenates all prompts in order as
// "[#1] <text> → [#2] <text> …", each prompt truncated to 200 chars, the
// whole request truncated to 500.
func foldPrompts(prompts []store.UserPrompt) string {
	parts := make([]string, 0, len(prompts))
	for _, p := range prompts {
		parts = append(parts, fmt.Sprintf("[#%d] %s", p.PromptNumber, truncateRunes(p.PromptText, maxPromptFoldChars)))
	}
	return truncateRunes(strings.Join(parts, " → "), maxRequestChars)
}

// commandFromInput recovers the "command" field of a serialized Bash-class
// tool input. Best-effort: malformed JSON yields no command.
func commandFromInput(toolInput string) string {
	m := decodeInput(toolInput)
	if m == nil {
		return ""
	}
	return stringField(m, "", "command")
}

// SummaryLine renders the one-line text form stored on the session row.
func SummaryLine(sum store.SessionSummary) string {
	line := sum.Completed
	if sum.Request != "" {
		line = truncateRunes(sum.Request, 120) + " — " + line
	}
	return line
}
