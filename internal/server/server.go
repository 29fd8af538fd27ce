// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it builds the memory service from
// configuration and injects it into the tools, prompts and resources that
// depend on it. No business logic lives here — only wiring.
package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/brindlecode/codemem/internal/cfg"
	"github.com/brindlecode/codemem/internal/facade"
	"github.com/brindlecode/codemem/internal/mcptools"
	"github.com/brindlecode/codemem/internal/prompts"
	"github.com/brindlecode/codemem/internal/resources"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts and
// resources registered. This is the single place where all dependencies
// are resolved.
//
// The returned cleanup function shuts the memory service down (cache,
// index, database) and must be called on shutdown, typically via defer.
// It is always non-nil.
func New(c cfg.Config, log *zap.Logger) (*server.MCPServer, func(), error) {
	if log == nil {
		log = zap.NewNop()
	}

	svc, err := facade.New(c, facade.WithLogger(log))
	if err != nil {
		return nil, noop, fmt.Errorf("creating memory service: %w", err)
	}
	cleanup := func() {
		if err := svc.Shutdown(context.Background()); err != nil {
			log.Warn("memory service shutdown", zap.Error(err))
		}
	}

	s := server.NewMCPServer(
		"codemem",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	registerMemoryTools(s, svc)

	// --- Register prompts ---

	resumePrompt := prompts.NewResumePrompt()
	s.AddPrompt(resumePrompt.Definition(), resumePrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(svc)
	s.AddResource(resourceHandler.StatsResource(), resourceHandler.HandleStats)
	s.AddResource(resourceHandler.HealthResource(), resourceHandler.HandleHealth)

	return s, cleanup, nil
}

// noop is a no-op cleanup function used when service construction fails.
func noop() {}

// registerMemoryTools registers the seven memory MCP tools with the server.
func registerMemoryTools(s *server.MCPServer, svc *facade.Service) {
	saveTool := mcptools.NewSaveTool(svc)
	s.AddTool(saveTool.Definition(), saveTool.Handle)

	searchTool := mcptools.NewSearchTool(svc)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	timelineTool := mcptools.NewTimelineTool(svc)
	s.AddTool(timelineTool.Definition(), timelineTool.Handle)

	detailsTool := mcptools.NewDetailsTool(svc)
	s.AddTool(detailsTool.Definition(), detailsTool.Handle)

	recallTool := mcptools.NewRecallTool(svc)
	s.AddTool(recallTool.Definition(), recallTool.Handle)

	listTool := mcptools.NewListTool(svc)
	s.AddTool(listTool.Definition(), listTool.Handle)

	statusTool := mcptools.NewStatusTool(svc)
	s.AddTool(statusTool.Definition(), statusTool.Handle)
}

// serverInstructions returns the system instructions that tell the AI how
// to use the memory server effectively.
func serverInstructions() string {
	return `You have access to codemem, a persistent project memory server.
Memory survives between conversations — use it to build project knowledge over time.

## When to Save (call memory_save PROACTIVELY after each of these)
- Architectural decisions or tradeoffs made (category: decision)
- Recurring patterns or conventions established (category: pattern)
- Errors encountered and how they were fixed (category: error)
- Project facts worth keeping: structure, environments, constraints (category: context)
- Notable things you observed while working (category: observation)

Mark importance honestly: critical for things that must never be forgotten,
low for minor notes. Add a few tags so later filtering works.

## When to Search
- At the start of a new session: memory_recall with the current topic,
  or memory_list to browse what exists
- Before making a decision: memory_search to check whether a prior
  decision already covers it
- When an error looks familiar: memory_search with its message

## Progressive Disclosure
1. Start with memory_search or memory_recall — snippets only
2. Use memory_timeline on an interesting observation to see what happened
   around it in the same session
3. Use memory_details (up to 5 ids) for the full untruncated records
4. memory_status shows system health and the active session

Tool captures (reads, edits, command runs) are recorded automatically by
the hook pipeline; you do not need to save those yourself. Save the
conclusions, not the keystrokes.`
}
