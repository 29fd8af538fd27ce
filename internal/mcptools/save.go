package mcptools

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/brindlecode/codemem/internal/facade"
	"github.com/brindlecode/codemem/internal/store"
)

// SaveTool handles the memory_save MCP tool.
type SaveTool struct {
	svc *facade.Service
}

// NewSaveTool creates a SaveTool backed by the given service.
func NewSaveTool(svc *facade.Service) *SaveTool {
	return &SaveTool{svc: svc}
}

// Definition returns the MCP tool definition for memory_save.
func (t *SaveTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_save",
		mcp.WithDescription(
			"Save an important piece of knowledge to persistent memory. Call this PROACTIVELY after "+
				"significant work — architectural decisions, recurring patterns, errors and their fixes, "+
				"project context worth keeping.",
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The knowledge to remember, written so it is useful without the current conversation"),
		),
		mcp.WithString("category",
			mcp.Description("What kind of memory this is (default: context)"),
			mcp.Enum(categories...),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated tags for later filtering (e.g. 'auth,middleware')"),
		),
		mcp.WithString("importance",
			mcp.Description("How important this memory is (default: medium)"),
			mcp.Enum(importances...),
		),
	)
}

// Handle processes the memory_save tool call.
func (t *SaveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := req.GetString("content", "")
	if content == "" {
		return mcp.NewToolResultError("'content' is required"), nil
	}

	category := req.GetString("category", "context")
	if !validEnum(category, categories) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid category %q", category)), nil
	}
	importance := req.GetString("importance", "medium")
	if !validEnum(importance, importances) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid importance %q", importance)), nil
	}
	tags := stringListArg(req, "tags")

	entry := store.Entry{
		Key:       category + "/" + uuid.NewString(),
		Content:   content,
		Type:      memoryTypeFor(category),
		Namespace: category,
		Tags:      tags,
		Metadata:  map[string]any{"category": category, "importance": importance},
	}
	if sess := t.svc.GetCurrentSession(); sess != nil {
		entry.Metadata["sessionId"] = sess.SessionID
	}

	stored, err := t.svc.StoreEntry(ctx, entry)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save memory: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Memory saved under %s (importance: %s)\nID: %s", category, importance, stored.ID)), nil
}

// memoryTypeFor maps a tool-surface category onto the storage taxonomy:
// observations are episodic, patterns procedural, the rest semantic.
func memoryTypeFor(category string) store.MemoryType {
	switch category {
	case "observation":
		return store.TypeEpisodic
	case "pattern":
		return store.TypeProcedural
	default:
		return store.TypeSemantic
	}
}
