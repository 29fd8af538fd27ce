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
	listDefaultLimit = 10
	listMaxLimit     = 50
)

// ListTool handles the memory_list MCP tool.
type ListTool struct {
	svc *facade.Service
}

// NewListTool creates a ListTool.
func NewListTool(svc *facade.Service) *ListTool {
	return &ListTool{svc: svc}
}

// Definition returns the MCP tool definition for memory_list.
func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_list",
		mcp.WithDescription(
			"List recent memories, newest first, optionally restricted to one category. "+
				"Use this to browse what has been saved without a search query.",
		),
		mcp.WithString("category",
			mcp.Description("Restrict the listing to one category"),
			mcp.Enum(categories...),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of memories (default: 10, max: 50)"),
		),
	)
}

// Handle processes the memory_list tool call.
func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := req.GetString("category", "")
	if !validEnum(category, categories) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid category %q", category)), nil
	}
	limit := intArg(req, "limit", listDefaultLimit)
	if limit <= 0 {
		limit = listDefaultLimit
	}
	if limit > listMaxLimit {
		limit = listMaxLimit
	}

	entries, err := t.svc.Query(ctx, store.QueryDescriptor{
		Type:      store.QueryKeyword,
		Namespace: category,
		Limit:     limit,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	if len(entries) == 0 {
		if category != "" {
			return mcp.NewToolResultText(fmt.Sprintf("No memories in category %q", category)), nil
		}
		return mcp.NewToolResultText("No memories saved yet"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d memories", len(entries))
	if category != "" {
		fmt.Fprintf(&b, " in %s", category)
	}
	b.WriteString(":\n\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "[%d] %s (%s, %s) - %s\n", i+1, e.ID, e.Namespace, formatMillis(e.CreatedAt),
			truncate(e.Content, 150))
	}
	return mcp.NewToolResultText(b.String()), nil
}
