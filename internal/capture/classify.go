package capture

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/brindlecode/codemem/internal/store"
)

// privateTagRegex matches <private>...</private> spans in captured text.
var privateTagRegex = regexp.MustCompile(`(?is)<private>.*?</private>`)

// internalTools are skipped entirely by the tool-use handler: bookkeeping
// calls a host makes that carry no standalone observational value.
var internalTools = map[string]bool{
	"TodoWrite":           true,
	"TodoRead":            true,
	"AskFollowupQuestion": true,
	"AttemptCompletion":   true,
}

// ClassifyTool maps a tool name to its Observation type. Unknown tools
// classify as ObsOther.
func ClassifyTool(toolName string) store.ObservationType {
	switch toolName {
	case "Read", "Glob", "Grep", "LS":
		return store.ObsRead
	case "Write", "Edit", "NotebookEdit":
		return store.ObsWrite
	case "Bash", "Task", "Skill":
		return store.ObsExecute
	case "WebSearch", "WebFetch":
		return store.ObsSearch
	default:
		return store.ObsOther
	}
}

// IsInternalTool reports whether toolName is host bookkeeping that the
// hook pipeline must silently skip.
func IsInternalTool(toolName string) bool {
	return internalTools[toolName]
}

// TitleFor synthesizes the deterministic fallback title for an
// observation from its tool name and input.
func TitleFor(toolName string, input map[string]any) string {
	switch toolName {
	case "Read":
		return "Read " + stringField(input, "file", "file_path", "path")
	case "Write":
		return "Write " + stringField(input, "file", "file_path", "path")
	case "Edit":
		return "Edit " + stringField(input, "file", "file_path", "path")
	case "Bash":
		cmd := stringField(input, "", "command")
		return "Run: " + truncateRunes(cmd, 50) + "…"
	case "Glob":
		return "Find " + stringField(input, "", "pattern")
	case "Grep":
		return fmt.Sprintf("Search %q", stringField(input, "", "pattern"))
	case "Task":
		return "Task: " + stringField(input, "agent", "description")
	case "WebSearch":
		return "Search: " + stringField(input, "", "query")
	case "WebFetch":
		return "Fetch: " + stringField(input, "", "url")
	default:
		return toolName
	}
}

// stringField looks up the first populated key in keys, falling back to
// def, deref'd from input best-effort (absent/wrong-typed keys are
// swallowed, never panicking).
func stringField(input map[string]any, def string, keys ...string) string {
	for _, k := range keys {
		if v, ok := input[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return def
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// ExtractFilePaths pulls a best-effort file path out of a read- or
// write-class tool's input: a missing or wrong-typed field yields no
// path, never an error.
func ExtractFilePaths(obsType store.ObservationType, input map[string]any) []string {
	if obsType != store.ObsRead && obsType != store.ObsWrite {
		return nil
	}
	path := stringField(input, "", "file_path", "path")
	if path == "" {
		return nil
	}
	return []string{path}
}

// stripPrivateTags replaces <private>...</private> spans in captured text
// with a [REDACTED] placeholder before anything is persisted.
func stripPrivateTags(s string) string {
	return strings.TrimSpace(privateTagRegex.ReplaceAllString(s, "[REDACTED]"))
}
