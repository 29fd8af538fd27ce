// Package prompts implements MCP prompt handlers for the memory server.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ResumePrompt handles the memory-resume MCP prompt. It guides the AI to
// recover project context from persistent memory at the start of a session.
type ResumePrompt struct{}

// NewResumePrompt creates a ResumePrompt.
func NewResumePrompt() *ResumePrompt {
	return &ResumePrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ResumePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("memory-resume",
		mcp.WithPromptDescription(
			"Resume work with full context from persistent memory. "+
				"Recalls recent decisions, patterns and errors so the session "+
				"starts informed instead of cold.",
		),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("Optional topic to focus the recall on (e.g. 'auth', 'ingestion pipeline')"),
		),
	)
}

// Handle processes the memory-resume prompt request.
func (p *ResumePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := ""
	if args := req.Params.Arguments; args != nil {
		topic = args["topic"]
	}

	var text string
	if topic != "" {
		text = fmt.Sprintf(
			"I'm resuming work on %q.\n\n"+
				"Please:\n"+
				"1. Run `memory_recall` with topic='%s' and timeRange='week'\n"+
				"2. Run `memory_list` with category='decision' to surface recent decisions\n"+
				"3. Summarize what is known, flag anything stale or contradictory\n"+
				"4. Ask me what I want to tackle first", topic, topic)
	} else {
		text = "I'm resuming work on this project.\n\n" +
			"Please:\n" +
			"1. Run `memory_list` to see what has been saved recently\n" +
			"2. Run `memory_list` with category='decision' for standing decisions\n" +
			"3. Summarize the project state from memory in a few bullet points\n" +
			"4. Ask me what I want to tackle first"
	}

	return &mcp.GetPromptResult{
		Description: "Resume with memory context",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(text),
			},
		},
	}, nil
}
