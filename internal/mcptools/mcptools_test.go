package mcptools

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/brindlecode/codemem/internal/cfg"
	"github.com/brindlecode/codemem/internal/facade"
	"github.com/brindlecode/codemem/internal/store"
)

func newTestService(t *testing.T) *facade.Service {
	t.Helper()
	c := cfg.Default()
	c.Storage.BaseDir = t.TempDir()
	c.Index.Dimensions = 8
	c.Cache.CleanupInterval = 0
	svc, err := facade.New(c)
	if err != nil {
		t.Fatalf("facade.New: %v", err)
	}
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })
	return svc
}

func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(r *mcp.CallToolResult) string {
	var b strings.Builder
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

func TestSaveToolDefinition(t *testing.T) {
	def := NewSaveTool(nil).Definition()
	if def.Name != "memory_save" {
		t.Errorf("name = %q, want memory_save", def.Name)
	}
	for _, prop := range []string{"content", "category", "tags", "importance"} {
		if _, ok := def.InputSchema.Properties[prop]; !ok {
			t.Errorf("schema missing property %q", prop)
		}
	}
	if len(def.InputSchema.Required) != 1 || def.InputSchema.Required[0] != "content" {
		t.Errorf("required = %v, want [content]", def.InputSchema.Required)
	}
}

func TestSaveRequiresContent(t *testing.T) {
	svc := newTestService(t)
	r, err := NewSaveTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !r.IsError {
		t.Fatal("expected error result for missing content")
	}
}

func TestSaveRejectsUnknownCategory(t *testing.T) {
	svc := newTestService(t)
	r, _ := NewSaveTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{
		"content":  "x",
		"category": "gossip",
	}))
	if !r.IsError {
		t.Fatal("expected error result for unknown category")
	}
}

func TestSaveThenSearch(t *testing.T) {
	svc := newTestService(t)
	save := NewSaveTool(svc)

	r, err := save.Handle(context.Background(), makeReq(map[string]interface{}{
		"content":    "Switched session tokens to short-lived JWTs with refresh rotation",
		"category":   "decision",
		"tags":       "auth,jwt",
		"importance": "high",
	}))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if r.IsError {
		t.Fatalf("save returned error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "decision") {
		t.Errorf("save response missing category: %s", resultText(r))
	}

	sr, err := NewSearchTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{
		"query": "JWT rotation",
	}))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	text := resultText(sr)
	if !strings.Contains(text, "short-lived JWTs") {
		t.Errorf("search did not surface saved memory: %s", text)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	svc := newTestService(t)
	r, _ := NewSearchTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{}))
	if !r.IsError {
		t.Fatal("expected error result for missing query")
	}
}

func TestSearchCategoryFilter(t *testing.T) {
	svc := newTestService(t)
	save := NewSaveTool(svc)
	for _, tc := range []struct{ content, category string }{
		{"retry with exponential backoff on 429 responses", "pattern"},
		{"backoff misconfigured in staging caused an outage", "error"},
	} {
		r, _ := save.Handle(context.Background(), makeReq(map[string]interface{}{
			"content": tc.content, "category": tc.category,
		}))
		if r.IsError {
			t.Fatalf("save failed: %s", resultText(r))
		}
	}

	r, _ := NewSearchTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{
		"query":    "backoff",
		"category": "error",
	}))
	text := resultText(r)
	if !strings.Contains(text, "outage") {
		t.Errorf("expected error-category hit, got: %s", text)
	}
	if strings.Contains(text, "exponential") {
		t.Errorf("pattern-category memory leaked through filter: %s", text)
	}
}

func TestListByCategory(t *testing.T) {
	svc := newTestService(t)
	save := NewSaveTool(svc)
	for _, tc := range []struct{ content, category string }{
		{"database is sharded by tenant id", "context"},
		{"never retry non-idempotent writes", "pattern"},
	} {
		save.Handle(context.Background(), makeReq(map[string]interface{}{
			"content": tc.content, "category": tc.category,
		}))
	}

	r, _ := NewListTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{
		"category": "pattern",
	}))
	text := resultText(r)
	if !strings.Contains(text, "non-idempotent") {
		t.Errorf("list missing pattern memory: %s", text)
	}
	if strings.Contains(text, "sharded") {
		t.Errorf("list leaked other category: %s", text)
	}

	empty, _ := NewListTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{
		"category": "decision",
	}))
	if !strings.Contains(resultText(empty), "No memories") {
		t.Errorf("empty category should report no memories: %s", resultText(empty))
	}
}

func TestRecallFindsTopic(t *testing.T) {
	svc := newTestService(t)
	NewSaveTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{
		"content": "the ingestion worker pool is capped at 8 goroutines",
	}))

	r, _ := NewRecallTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{
		"topic":     "ingestion worker",
		"timeRange": "today",
	}))
	if !strings.Contains(resultText(r), "goroutines") {
		t.Errorf("recall missed fresh memory: %s", resultText(r))
	}

	bad, _ := NewRecallTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{
		"topic": "x", "timeRange": "decade",
	}))
	if !bad.IsError {
		t.Fatal("expected error result for unknown timeRange")
	}
}

func seedSessionObservations(t *testing.T, svc *facade.Service) []store.Observation {
	t.Helper()
	sess, err := svc.StartSession(context.Background(), "sess-1", "proj", "do things")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	base := int64(1_700_000_000_000)
	var out []store.Observation
	for i, title := range []string{"read config", "edited handler", "ran checks"} {
		o, err := svc.Store().AddObservation(store.Observation{
			SessionID: sess.SessionID,
			Project:   sess.Project,
			ToolName:  "tool",
			Type:      store.ObsOther,
			Title:     title,
			Timestamp: base + int64(i)*60_000,
		})
		if err != nil {
			t.Fatalf("AddObservation: %v", err)
		}
		out = append(out, o)
	}
	return out
}

func TestTimelineAroundAnchor(t *testing.T) {
	svc := newTestService(t)
	obs := seedSessionObservations(t, svc)

	r, err := NewTimelineTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{
		"anchor": obs[1].ID,
		"before": float64(5),
		"after":  float64(5),
	}))
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	text := resultText(r)
	if !strings.Contains(text, "--- Before ---") || !strings.Contains(text, "--- After ---") {
		t.Fatalf("timeline missing sections: %s", text)
	}
	if !strings.Contains(text, "read config") || !strings.Contains(text, "ran checks") {
		t.Errorf("timeline missing neighbors: %s", text)
	}
	if !strings.Contains(text, ">>>") || !strings.Contains(text, "edited handler") {
		t.Errorf("timeline missing focus: %s", text)
	}
}

func TestTimelineUnknownAnchor(t *testing.T) {
	svc := newTestService(t)
	r, _ := NewTimelineTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{
		"anchor": "nope",
	}))
	if !r.IsError {
		t.Fatal("expected error result for unknown anchor")
	}
}

func TestDetailsFetchesRecords(t *testing.T) {
	svc := newTestService(t)
	obs := seedSessionObservations(t, svc)

	r, _ := NewDetailsTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{
		"ids": []interface{}{obs[0].ID, obs[2].ID},
	}))
	text := resultText(r)
	if !strings.Contains(text, "read config") || !strings.Contains(text, "ran checks") {
		t.Errorf("details missing records: %s", text)
	}
}

func TestDetailsCapsAtFive(t *testing.T) {
	svc := newTestService(t)
	ids := make([]interface{}, 6)
	for i := range ids {
		ids[i] = "id"
	}
	r, _ := NewDetailsTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{
		"ids": ids,
	}))
	if !r.IsError {
		t.Fatal("expected error result beyond five ids")
	}
	if !strings.Contains(resultText(r), "at most 5") {
		t.Errorf("cap message missing: %s", resultText(r))
	}
}

func TestStatusReportsHealthAndSession(t *testing.T) {
	svc := newTestService(t)
	r, _ := NewStatusTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{}))
	text := resultText(r)
	if !strings.Contains(text, "Status: healthy") {
		t.Errorf("status missing health line: %s", text)
	}
	if !strings.Contains(text, "No active session") {
		t.Errorf("status should report no session: %s", text)
	}

	if _, err := svc.StartSession(context.Background(), "", "proj", "p"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	r, _ = NewStatusTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{}))
	if !strings.Contains(resultText(r), "Active session") {
		t.Errorf("status missing active session: %s", resultText(r))
	}
}
