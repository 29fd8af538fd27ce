package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/brindlecode/codemem/internal/facade"
	"github.com/brindlecode/codemem/internal/store"
)

// maxDetailRecords caps how many observations one memory_details call may
// fetch; callers wanting more page through multiple calls.
const maxDetailRecords = 5

// DetailsTool handles the memory_details MCP tool.
type DetailsTool struct {
	svc *facade.Service
}

// NewDetailsTool creates a DetailsTool.
func NewDetailsTool(svc *facade.Service) *DetailsTool {
	return &DetailsTool{svc: svc}
}

// Definition returns the MCP tool definition for memory_details.
func (t *DetailsTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_details",
		mcp.WithDescription(
			"Fetch the full, untruncated record of up to 5 observations by id. Use after "+
				"memory_search or memory_timeline when the snippet is not enough.",
		),
		mcp.WithArray("ids",
			mcp.Required(),
			mcp.Description("Observation ids to fetch (at most 5 per call)"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)
}

// Handle processes the memory_details tool call.
func (t *DetailsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := stringListArg(req, "ids")
	if len(ids) == 0 {
		return mcp.NewToolResultError("'ids' is required"), nil
	}
	if len(ids) > maxDetailRecords {
		return mcp.NewToolResultError(fmt.Sprintf("at most %d ids per call, got %d", maxDetailRecords, len(ids))), nil
	}

	var b strings.Builder
	for i, id := range ids {
		obs, err := t.svc.Store().GetObservation(id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("lookup failed for %s: %v", id, err)), nil
		}
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		if obs == nil {
			fmt.Fprintf(&b, "Observation %s: not found\n", id)
			continue
		}
		writeObservation(&b, *obs)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func writeObservation(b *strings.Builder, o store.Observation) {
	fmt.Fprintf(b, "# Observation %s\n\n", o.ID)
	fmt.Fprintf(b, "**Title:** %s\n", o.Title)
	fmt.Fprintf(b, "**Type:** %s\n", o.Type)
	fmt.Fprintf(b, "**Tool:** %s\n", o.ToolName)
	fmt.Fprintf(b, "**Session:** %s\n", o.SessionID)
	if o.Project != "" {
		fmt.Fprintf(b, "**Project:** %s\n", o.Project)
	}
	fmt.Fprintf(b, "**When:** %s\n", formatMillis(o.Timestamp))
	if o.Subtitle != "" {
		fmt.Fprintf(b, "**Subtitle:** %s\n", o.Subtitle)
	}
	if o.Narrative != "" {
		fmt.Fprintf(b, "\n%s\n", o.Narrative)
	}
	if len(o.Facts) > 0 {
		b.WriteString("\n**Facts:**\n")
		for _, f := range o.Facts {
			fmt.Fprintf(b, "- %s\n", f)
		}
	}
	if len(o.Concepts) > 0 {
		fmt.Fprintf(b, "\n**Concepts:** %s\n", strings.Join(o.Concepts, ", "))
	}
	if len(o.FilesRead) > 0 {
		fmt.Fprintf(b, "**Files read:** %s\n", strings.Join(o.FilesRead, ", "))
	}
	if len(o.FilesModified) > 0 {
		fmt.Fprintf(b, "**Files modified:** %s\n", strings.Join(o.FilesModified, ", "))
	}
	if o.ToolInput != "" {
		fmt.Fprintf(b, "\n**Input:**\n%s\n", o.ToolInput)
	}
	if o.ToolResponse != "" {
		fmt.Fprintf(b, "\n**Response:**\n%s\n", o.ToolResponse)
	}
}
