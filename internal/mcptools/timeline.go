package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/brindlecode/codemem/internal/facade"
	"github.com/brindlecode/codemem/internal/store"
)

const (
	timelineDefaultWindow = 30 // minutes either side of the anchor
	timelineDefaultLimit  = 20
)

// TimelineTool handles the memory_timeline MCP tool.
type TimelineTool struct {
	svc *facade.Service
}

// NewTimelineTool creates a TimelineTool.
func NewTimelineTool(svc *facade.Service) *TimelineTool {
	return &TimelineTool{svc: svc}
}

// Definition returns the MCP tool definition for memory_timeline.
func (t *TimelineTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_timeline",
		mcp.WithDescription(
			"Show the chronological context around a captured observation: what happened in the same "+
				"session shortly before and after it. This is the progressive disclosure pattern — "+
				"search first, then timeline to understand the surrounding work.",
		),
		mcp.WithString("anchor",
			mcp.Required(),
			mcp.Description("Observation id to center the timeline on"),
		),
		mcp.WithNumber("before",
			mcp.Description("Minutes of history before the anchor (default: 30)"),
		),
		mcp.WithNumber("after",
			mcp.Description("Minutes of history after the anchor (default: 30)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum observations per side (default: 20)"),
		),
	)
}

// Handle processes the memory_timeline tool call.
func (t *TimelineTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	anchorID := req.GetString("anchor", "")
	if anchorID == "" {
		return mcp.NewToolResultError("'anchor' is required"), nil
	}
	beforeMin := intArg(req, "before", timelineDefaultWindow)
	afterMin := intArg(req, "after", timelineDefaultWindow)
	limit := intArg(req, "limit", timelineDefaultLimit)

	anchor, err := t.svc.Store().GetObservation(anchorID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("timeline failed: %v", err)), nil
	}
	if anchor == nil {
		return mcp.NewToolResultError(fmt.Sprintf("observation %s not found", anchorID)), nil
	}

	lo := anchor.Timestamp - int64(beforeMin)*60_000
	hi := anchor.Timestamp + int64(afterMin)*60_000
	window, err := t.svc.Store().Timeline(anchor.SessionID, lo, hi, 2*limit+1)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("timeline failed: %v", err)), nil
	}

	var before, after []store.Observation
	for _, o := range window {
		switch {
		case o.ID == anchor.ID:
		case o.Timestamp <= anchor.Timestamp:
			before = append(before, o)
		default:
			after = append(after, o)
		}
	}
	if len(before) > limit {
		before = before[len(before)-limit:]
	}
	if len(after) > limit {
		after = after[:limit]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n\n", anchor.SessionID)

	if len(before) > 0 {
		b.WriteString("--- Before ---\n")
		for _, o := range before {
			writeTimelineLine(&b, o)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, ">>> %s [%s] %s <<<\n", formatMillis(anchor.Timestamp), anchor.Type, anchor.Title)
	if anchor.Subtitle != "" {
		fmt.Fprintf(&b, "%s\n", anchor.Subtitle)
	}
	if anchor.Narrative != "" {
		fmt.Fprintf(&b, "%s\n", anchor.Narrative)
	}
	b.WriteString("\n")

	if len(after) > 0 {
		b.WriteString("--- After ---\n")
		for _, o := range after {
			writeTimelineLine(&b, o)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func writeTimelineLine(b *strings.Builder, o store.Observation) {
	line := fmt.Sprintf("%s [%s] %s", formatMillis(o.Timestamp), o.Type, o.Title)
	if o.Subtitle != "" {
		line += ": " + truncate(o.Subtitle, 120)
	}
	fmt.Fprintf(b, "%s (%s)\n", line, o.ID)
}
