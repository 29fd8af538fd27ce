package mcptools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/brindlecode/codemem/internal/facade"
	"github.com/brindlecode/codemem/internal/store"
)

const recallDefaultLimit = 10

// RecallTool handles the memory_recall MCP tool.
type RecallTool struct {
	svc *facade.Service
}

// NewRecallTool creates a RecallTool.
func NewRecallTool(svc *facade.Service) *RecallTool {
	return &RecallTool{svc: svc}
}

// Definition returns the MCP tool definition for memory_recall.
func (t *RecallTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_recall",
		mcp.WithDescription(
			"Recall what is known about a topic, optionally restricted to a recent time window. "+
				"Good first call when resuming work: 'what do we know about X?'",
		),
		mcp.WithString("topic",
			mcp.Required(),
			mcp.Description("The topic to recall (matched against memory content)"),
		),
		mcp.WithString("timeRange",
			mcp.Description("How far back to look (default: all)"),
			mcp.Enum(timeRanges...),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of memories (default: 10)"),
		),
	)
}

// Handle processes the memory_recall tool call.
func (t *RecallTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic := req.GetString("topic", "")
	if topic == "" {
		return mcp.NewToolResultError("'topic' is required"), nil
	}
	timeRange := req.GetString("timeRange", "all")
	if !validEnum(timeRange, timeRanges) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid timeRange %q", timeRange)), nil
	}
	limit := intArg(req, "limit", recallDefaultLimit)

	entries, err := t.svc.Query(ctx, store.QueryDescriptor{
		Type:         store.QueryKeyword,
		Content:      topic,
		CreatedAfter: cutoffFor(timeRange),
		Limit:        limit,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("recall failed: %v", err)), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No memories about %q in range %q", topic, timeRange)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Memories about %q (%s):\n\n", topic, timeRange)
	for _, e := range entries {
		fmt.Fprintf(&b, "- [%s] %s (%s)\n  %s\n", e.Namespace, formatMillis(e.CreatedAt), e.ID,
			truncate(e.Content, 200))
	}
	return mcp.NewToolResultText(b.String()), nil
}

// cutoffFor converts a named time range into an epoch-milliseconds lower
// bound; zero means unbounded.
func cutoffFor(timeRange string) int64 {
	now := time.Now().UTC()
	switch timeRange {
	case "today":
		return now.Add(-24 * time.Hour).UnixMilli()
	case "week":
		return now.Add(-7 * 24 * time.Hour).UnixMilli()
	case "month":
		return now.Add(-30 * 24 * time.Hour).UnixMilli()
	default:
		return 0
	}
}
