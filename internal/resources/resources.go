// Package resources implements MCP resource handlers for the memory server.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (memory://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/brindlecode/codemem/internal/facade"
)

// Handler serves the memory resource endpoints.
type Handler struct {
	svc *facade.Service
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(svc *facade.Service) *Handler {
	return &Handler{svc: svc}
}

// StatsResource returns the MCP resource definition for memory statistics.
func (h *Handler) StatsResource() mcp.Resource {
	return mcp.NewResource(
		"memory://stats",
		"Memory Statistics",
		mcp.WithResourceDescription("Entry counts per namespace and type, vector index size, cache hit rate"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStats returns the aggregated statistics as JSON.
func (h *Handler) HandleStats(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	stats, err := h.svc.GetStats(ctx)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling stats: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// HealthResource returns the MCP resource definition for the health report.
func (h *Handler) HealthResource() mcp.Resource {
	return mcp.NewResource(
		"memory://health",
		"Memory Health",
		mcp.WithResourceDescription("Component health report: database, FTS index, vector index, cache"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleHealth returns the component health report as JSON.
func (h *Handler) HandleHealth(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	health := h.svc.HealthCheck(ctx)

	data, err := json.MarshalIndent(health, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling health: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
