package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/brindlecode/codemem/internal/store"
)

// HookResponse is the envelope written back to the host on stdout for
// every handled hook event. Continue is always true: hook failures are
// logged, never surfaced as blocking errors.
type HookResponse struct {
	Continue           bool                `json:"continue"`
	SuppressOutput     bool                `json:"suppressOutput"`
	HookSpecificOutput *HookSpecificOutput `json:"hookSpecificOutput,omitempty"`
}

// HookSpecificOutput carries the session-start context payload back to
// the host.
type HookSpecificOutput struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext"`
}

// Pipeline is the hook ingestion path: it attaches captured tool
// invocations to sessions and enriches them into durable observations,
// prompts and summaries. All handlers recover internal failures into a
// logged warning and a standard response, so a hook can never block the
// host process.
type Pipeline struct {
	store   *store.Store
	oracle  EnrichmentOracle
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures optional Pipeline collaborators.
type Option func(*Pipeline)

// WithOracle wires an enrichment oracle; nil leaves the deterministic
// template path in place.
func WithOracle(o EnrichmentOracle) Option {
	return func(p *Pipeline) { p.oracle = o }
}

// WithEnrichTimeout overrides the oracle's per-call budget.
func WithEnrichTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.timeout = d }
}

// WithLogger wires a zap logger; nil falls back to a nop logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline constructs a Pipeline over an initialized store.
func NewPipeline(s *store.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:   s,
		timeout: DefaultEnrichTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ensureSession makes the session row for rec exist, idempotently: a
// concurrent or repeated create that loses the uniqueness race is treated
// as success.
func (p *Pipeline) ensureSession(rec Record) error {
	sess, err := p.store.GetSession(rec.SessionID)
	if err != nil {
		return err
	}
	if sess != nil {
		return nil
	}
	_, err = p.store.StartSession(rec.SessionID, rec.Project, rec.Prompt)
	if errors.Is(err, store.ErrConflict) {
		return nil
	}
	return err
}

// HandleSessionStart loads recent context for the record's project and
// renders it as a Markdown payload. An empty project history yields an
// empty payload, not an error.
func (p *Pipeline) HandleSessionStart(ctx context.Context, rec Record) HookResponse {
	md, err := p.buildContext(rec.Project)
	if err != nil {
		p.logger.Warn("session-start context load failed", zap.String("project", rec.Project), zap.Error(err))
		return HookResponse{Continue: true, SuppressOutput: true}
	}
	if md == "" {
		return HookResponse{Continue: true, SuppressOutput: true}
	}
	return HookResponse{
		Continue:       true,
		SuppressOutput: false,
		HookSpecificOutput: &HookSpecificOutput{
			HookEventName:     "SessionStart",
			AdditionalContext: md,
		},
	}
}

// HandleSessionInit ensures the session record exists without recording
// anything else.
func (p *Pipeline) HandleSessionInit(ctx context.Context, rec Record) HookResponse {
	if err := p.ensureSession(rec); err != nil {
		p.logger.Warn("session init failed", zap.String("session", rec.SessionID), zap.Error(err))
	}
	return HookResponse{Continue: true, SuppressOutput: true}
}

// HandlePromptSubmit appends the record's prompt to its session, creating
// the session first when absent. Prompt numbering is dense 1..n, enforced
// by the store.
func (p *Pipeline) HandlePromptSubmit(ctx context.Context, rec Record) HookResponse {
	if rec.Prompt == "" {
		return HookResponse{Continue: true, SuppressOutput: true}
	}
	if err := p.ensureSession(rec); err != nil {
		p.logger.Warn("prompt submit: ensure session failed", zap.String("session", rec.SessionID), zap.Error(err))
		return HookResponse{Continue: true, SuppressOutput: true}
	}
	if _, err := p.store.RecordPrompt(rec.SessionID, stripPrivateTags(rec.Prompt)); err != nil {
		p.logger.Warn("prompt submit: record failed", zap.String("session", rec.SessionID), zap.Error(err))
	}
	return HookResponse{Continue: true, SuppressOutput: true}
}

// HandleToolUse persists one captured tool invocation as an Observation.
// Internal host bookkeeping tools are skipped silently.
func (p *Pipeline) HandleToolUse(ctx context.Context, rec Record) HookResponse {
	resp := HookResponse{Continue: true, SuppressOutput: true}
	if rec.ToolName == "" || IsInternalTool(rec.ToolName) {
		return resp
	}
	if err := p.ensureSession(rec); err != nil {
		p.logger.Warn("tool use: ensure session failed", zap.String("session", rec.SessionID), zap.Error(err))
		return resp
	}

	obs := p.buildObservation(ctx, rec)
	if _, err := p.store.AddObservation(obs); err != nil {
		p.logger.Warn("tool use: add observation failed",
			zap.String("session", rec.SessionID),
			zap.String("tool", rec.ToolName),
			zap.Error(err))
	}
	return resp
}

// buildObservation classifies, titles and (optionally) enriches one tool
// invocation into an Observation record.
func (p *Pipeline) buildObservation(ctx context.Context, rec Record) store.Observation {
	obsType := ClassifyTool(rec.ToolName)
	response := serializeResponse(rec.ToolResult)

	fallback := Enrichment{Subtitle: "", Narrative: TitleFor(rec.ToolName, rec.ToolInput)}
	enr := enrich(ctx, p.oracle, p.timeout, rec.ToolName, rec.ToolInput, response, fallback)

	obs := store.Observation{
		SessionID:    rec.SessionID,
		Project:      rec.Project,
		ToolName:     rec.ToolName,
		ToolInput:    encodeInput(rec.ToolInput),
		ToolResponse: response,
		Cwd:          rec.Cwd,
		Timestamp:    rec.Timestamp,
		Type:         obsType,
		Title:        TitleFor(rec.ToolName, rec.ToolInput),
		Subtitle:     enr.Subtitle,
		Narrative:    stripPrivateTags(enr.Narrative),
		Facts:        enr.Facts,
		Concepts:     enr.Concepts,
	}

	paths := ExtractFilePaths(obsType, rec.ToolInput)
	switch obsType {
	case store.ObsRead:
		obs.FilesRead = paths
	case store.ObsWrite:
		obs.FilesModified = paths
	}

	if n, err := p.store.LatestPromptNumber(rec.SessionID); err == nil && n > 0 {
		obs.PromptNumber = &n
	}
	return obs
}

// HandleSessionEnd folds the session's prompts and observations into a
// SessionSummary, persists it, and marks the session completed.
func (p *Pipeline) HandleSessionEnd(ctx context.Context, rec Record) HookResponse {
	resp := HookResponse{Continue: true, SuppressOutput: true}

	prompts, err := p.store.PromptsForSession(rec.SessionID)
	if err != nil {
		p.logger.Warn("session end: load prompts failed", zap.String("session", rec.SessionID), zap.Error(err))
		return resp
	}
	observations, err := p.store.ObservationsForSession(rec.SessionID)
	if err != nil {
		p.logger.Warn("session end: load observations failed", zap.String("session", rec.SessionID), zap.Error(err))
		return resp
	}

	sum := BuildSummary(rec.SessionID, rec.Project, prompts, observations)
	if err := p.store.SaveSummary(sum); err != nil {
		p.logger.Warn("session end: save summary failed", zap.String("session", rec.SessionID), zap.Error(err))
	}
	if err := p.store.EndSession(rec.SessionID, store.SessionCompleted, SummaryLine(sum)); err != nil && !errors.Is(err, store.ErrNotFound) {
		p.logger.Warn("session end: mark completed failed", zap.String("session", rec.SessionID), zap.Error(err))
	}
	return resp
}

// EnrichObservation re-runs enrichment for an already-persisted
// observation, used by the enrich CLI subcommand to backfill richer
// detail out of band.
func (p *Pipeline) EnrichObservation(ctx context.Context, observationID string) error {
	obs, err := p.store.GetObservation(observationID)
	if err != nil {
		return err
	}
	if obs == nil {
		return fmt.Errorf("%w: observation %q", store.ErrNotFound, observationID)
	}
	if p.oracle == nil {
		return nil
	}

	fallback := Enrichment{
		Subtitle:  obs.Subtitle,
		Narrative: obs.Narrative,
		Facts:     obs.Facts,
		Concepts:  obs.Concepts,
	}
	enr := enrich(ctx, p.oracle, p.timeout, obs.ToolName, decodeInput(obs.ToolInput), obs.ToolResponse, fallback)
	return p.store.UpdateObservationEnrichment(obs.ID, enr.Subtitle, stripPrivateTags(enr.Narrative), enr.Facts, enr.Concepts)
}
