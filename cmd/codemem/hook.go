package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brindlecode/codemem/internal/capture"
	"github.com/brindlecode/codemem/internal/cfg"
	"github.com/brindlecode/codemem/internal/store"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Ingest one hook event from stdin",
	Long: `Ingest a single hook event. The host process pipes the JSON envelope on
stdin; the response envelope is written to stdout.

Subcommands map to host lifecycle events:

  context        Session start: emit recent project context
  session-init   Session start: register the session without context
  user-message   Prompt submitted: record the user's prompt
  observation    Tool used: capture the invocation as an observation
  summarize      Session end: fold the session into a summary
  enrich         Backfill enrichment for a stored observation

Hook commands always exit 0: internal failures are logged to stderr and a
standard "continue" response is emitted, so a broken memory system can
never block the host.`,
}

func init() {
	hookCmd.AddCommand(
		hookEventCmd("context", "Emit recent project context at session start",
			(*capture.Pipeline).HandleSessionStart),
		hookEventCmd("session-init", "Register a session without emitting context",
			(*capture.Pipeline).HandleSessionInit),
		hookEventCmd("user-message", "Record a submitted user prompt",
			(*capture.Pipeline).HandlePromptSubmit),
		hookEventCmd("observation", "Capture a tool invocation as an observation",
			(*capture.Pipeline).HandleToolUse),
		hookEventCmd("summarize", "Fold the session into a summary at session end",
			(*capture.Pipeline).HandleSessionEnd),
		enrichCmd(),
	)
}

// hookEventCmd builds one stdin-driven hook subcommand. All of them share
// the same shape: read the envelope, open the store, dispatch, print the
// response, exit 0 no matter what.
func hookEventCmd(name, short string, handle func(*capture.Pipeline, context.Context, capture.Record) capture.HookResponse) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Run: func(cmd *cobra.Command, args []string) {
			log := hookLogger()
			defer func() { _ = log.Sync() }()

			raw, err := io.ReadAll(os.Stdin)
			if err != nil {
				log.Warn("hook: reading stdin failed", zap.Error(err))
			}
			rec := capture.Parse(raw)

			p, closeStore, err := openPipeline(log, rec.Cwd)
			if err != nil {
				log.Warn("hook: opening store failed", zap.Error(err))
				emitResponse(capture.HookResponse{Continue: true, SuppressOutput: true})
				return
			}
			defer closeStore()

			emitResponse(handle(p, context.Background(), rec))
		},
	}
}

func enrichCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enrich <observation-id> [cwd]",
		Short: "Backfill enrichment for a stored observation",
		Args:  cobra.RangeArgs(1, 2),
		Run: func(cmd *cobra.Command, args []string) {
			log := hookLogger()
			defer func() { _ = log.Sync() }()

			cwd := ""
			if len(args) == 2 {
				cwd = args[1]
			}
			p, closeStore, err := openPipeline(log, cwd)
			if err != nil {
				log.Warn("enrich: opening store failed", zap.Error(err))
				return
			}
			defer closeStore()

			if err := p.EnrichObservation(context.Background(), args[0]); err != nil {
				log.Warn("enrich failed", zap.String("observation", args[0]), zap.Error(err))
			}
		},
	}
}

// openPipeline opens the project store for cwd and wraps it in a hook
// pipeline. cwd overrides the configured base dir so the hook writes to
// the project the host is actually working in.
func openPipeline(log *zap.Logger, cwd string) (*capture.Pipeline, func(), error) {
	c, err := cfg.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if cwd != "" {
		c.Storage.BaseDir = cwd
	}

	st, err := store.New(store.Config{
		BaseDir:      c.Storage.BaseDir,
		DBFileName:   c.Storage.DBFile,
		FTSTokenizer: c.Storage.Tokenizer,
	})
	if err != nil {
		return nil, nil, err
	}

	p := capture.NewPipeline(st,
		capture.WithEnrichTimeout(c.Hooks.EnrichTimeout),
		capture.WithLogger(log),
	)
	return p, func() { _ = st.Close() }, nil
}

// emitResponse writes the hook response envelope to stdout. Encoding
// failures are unrecoverable at this point; fall back to the minimal
// always-continue literal.
func emitResponse(resp capture.HookResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		fmt.Println(`{"continue":true,"suppressOutput":true}`)
		return
	}
	fmt.Println(string(data))
}

// hookLogger logs to stderr only, keeping stdout clean for the response
// envelope.
func hookLogger() *zap.Logger {
	log, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return log
}
