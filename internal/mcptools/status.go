package mcptools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/brindlecode/codemem/internal/facade"
)

// StatusTool handles the memory_status MCP tool.
type StatusTool struct {
	svc *facade.Service
}

// NewStatusTool creates a StatusTool.
func NewStatusTool(svc *facade.Service) *StatusTool {
	return &StatusTool{svc: svc}
}

// Definition returns the MCP tool definition for memory_status.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_status",
		mcp.WithDescription(
			"Report the health and statistics of the memory system: entry counts per namespace "+
				"and type, vector index size, cache hit rate, and the active session if any.",
		),
	)
}

// Handle processes the memory_status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := t.svc.GetStats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("status failed: %v", err)), nil
	}
	health := t.svc.HealthCheck(ctx)

	var b strings.Builder
	if health.Healthy {
		b.WriteString("Status: healthy\n")
	} else {
		b.WriteString("Status: UNHEALTHY\n")
	}
	for _, name := range sortedKeys(health.SubStatuses) {
		fmt.Fprintf(&b, "  %s: %s\n", name, health.SubStatuses[name])
	}

	fmt.Fprintf(&b, "\nEntries: %d (%s on disk)\n", stats.Store.TotalEntries, formatBytes(stats.Store.MemoryUsage))
	if len(stats.Store.EntriesByNamespace) > 0 {
		b.WriteString("By namespace:\n")
		for _, ns := range sortedKeys(stats.Store.EntriesByNamespace) {
			fmt.Fprintf(&b, "  %s: %d\n", ns, stats.Store.EntriesByNamespace[ns])
		}
	}
	if len(stats.Store.EntriesByType) > 0 {
		b.WriteString("By type:\n")
		for _, ty := range sortedKeys(stats.Store.EntriesByType) {
			fmt.Fprintf(&b, "  %s: %d\n", ty, stats.Store.EntriesByType[ty])
		}
	}

	fmt.Fprintf(&b, "\nVector index: %d points (%s in memory)\n",
		stats.Index.VectorCount, formatBytes(stats.Index.MemoryUsage))
	fmt.Fprintf(&b, "Cache: %d entries, %.0f%% hit rate\n",
		stats.Cache.Size, stats.Cache.HitRate*100)

	if sess := t.svc.GetCurrentSession(); sess != nil {
		fmt.Fprintf(&b, "\nActive session: %s (%s, started %s, %d observations)\n",
			sess.SessionID, sess.Project, formatMillis(sess.StartedAt), sess.ObservationCount)
	} else {
		b.WriteString("\nNo active session\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
