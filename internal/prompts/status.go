package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the memory-status MCP prompt. It instructs the AI
// to inspect and present the state of the memory system.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("memory-status",
		mcp.WithPromptDescription(
			"Check the health of the persistent memory system: entry counts, "+
				"index and cache state, and the active session.",
		),
	)
}

// Handle processes the memory-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Memory system status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `memory_status` to check the memory system.\n\n" +
						"Then:\n" +
						"1. Present the health and per-namespace counts in a compact table\n" +
						"2. Flag anything unusual (unhealthy components, empty index, low cache hit rate)\n" +
						"3. If a session is active, note how long it has been running",
				),
			},
		},
	}, nil
}
