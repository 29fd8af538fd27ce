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
	searchDefaultLimit = 10
	searchMaxLimit     = 20
)

// SearchTool handles the memory_search MCP tool.
type SearchTool struct {
	svc *facade.Service
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(svc *facade.Service) *SearchTool {
	return &SearchTool{svc: svc}
}

// Definition returns the MCP tool definition for memory_search.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_search",
		mcp.WithDescription(
			"Search persistent memory by keyword. Returns matching memories ranked with full-text "+
				"hits first. Use memory_details or memory_timeline afterwards to drill into results.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search terms (matched against memory content)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 10, max: 20)"),
		),
		mcp.WithString("category",
			mcp.Description("Restrict results to one category"),
			mcp.Enum(categories...),
		),
	)
}

// Handle processes the memory_search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	category := req.GetString("category", "")
	if !validEnum(category, categories) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid category %q", category)), nil
	}
	limit := intArg(req, "limit", searchDefaultLimit)
	if limit <= 0 {
		limit = searchDefaultLimit
	}
	if limit > searchMaxLimit {
		limit = searchMaxLimit
	}

	entries, err := t.svc.Query(ctx, store.QueryDescriptor{
		Type:      store.QueryHybrid,
		Content:   query,
		Namespace: category,
		Limit:     limit,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No memories found for %q", query)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d memories for %q:\n\n", len(entries), query)
	for i, e := range entries {
		fmt.Fprintf(&b, "[%d] %s (%s, %s) - %s\n", i+1, e.ID, e.Namespace, formatMillis(e.CreatedAt),
			truncate(e.Content, 150))
	}
	return mcp.NewToolResultText(b.String()), nil
}
