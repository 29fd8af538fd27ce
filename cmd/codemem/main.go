// Package main implements the codemem CLI: the MCP memory server and the
// hook ingestion entry points a host process calls on session events.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/brindlecode/codemem/internal/server"
)

// configPath is the optional YAML config file; empty means defaults plus
// environment overrides.
var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "codemem",
	Short: "Project-scoped persistent memory for coding agents",
	Long: `codemem stores decisions, patterns, errors and captured tool activity in a
per-project SQLite database, indexes embeddings in memory for semantic
search, and exposes everything over MCP.

It has two entry points:

  codemem serve   Start the MCP server on stdio
  codemem hook    Ingest one hook event from stdin (called by the host)`,
	Version: server.Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file (default: built-in defaults + CODEMEM_* env)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(hookCmd)
}
