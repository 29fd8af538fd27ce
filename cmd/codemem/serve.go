package main

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brindlecode/codemem/internal/cfg"
	"github.com/brindlecode/codemem/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server (stdio transport)",
	Long: `Start the memory MCP server on stdio.

Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "codemem": {
        "command": "codemem",
        "args": ["serve"]
      }
    }
  }`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	c, err := cfg.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Logs go to stderr so they never interfere with MCP's stdio
	// transport on stdout.
	log, err := zap.NewProduction()
	if err != nil {
		log = zap.NewNop()
	}
	defer func() { _ = log.Sync() }()

	s, cleanup, err := server.New(c, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	return mcpserver.ServeStdio(s)
}
