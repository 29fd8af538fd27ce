// Package mcptools exposes the memory service over the MCP tool surface.
//
// Each tool follows the same pattern:
// - A struct with its dependency (the facade service) injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Handlers never return Go errors for user mistakes; bad arguments come
// back as tool-result errors so the caller sees them inline.
package mcptools

import (
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// stringListArg extracts a list-of-strings argument. JSON arrays arrive as
// []any; a plain comma-separated string is accepted too.
func stringListArg(req mcp.CallToolRequest, key string) []string {
	switch v := req.GetArguments()[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return nil
	}
}

// truncate cuts s to max runes, appending an ellipsis marker when cut.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// formatMillis renders an epoch-milliseconds timestamp for tool output.
func formatMillis(ms int64) string {
	if ms == 0 {
		return "unknown"
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05")
}

// validEnum reports whether v is empty or one of allowed.
func validEnum(v string, allowed []string) bool {
	if v == "" {
		return true
	}
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

var (
	categories  = []string{"decision", "pattern", "error", "context", "observation"}
	importances = []string{"low", "medium", "high", "critical"}
	timeRanges  = []string{"today", "week", "month", "all"}
)
