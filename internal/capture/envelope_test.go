package capture

import (
	"strings"
	"testing"
)

func TestParse_FullEnvelope(t *testing.T) {
	raw := []byte(`{
		"session_id": "sess-1",
		"cwd": "/home/dev/myproj",
		"prompt": "do the thing",
		"tool_name": "Read",
		"tool_input": {"file_path": "/a.go"},
		"tool_result": {"ok": true},
		"stop_reason": "end_turn"
	}`)
	rec := Parse(raw)
	if rec.SessionID != "sess-1" {
		t.Errorf("SessionID = %q", rec.SessionID)
	}
	if rec.Project != "myproj" {
		t.Errorf("Project = %q, want myproj", rec.Project)
	}
	if rec.ToolName != "Read" {
		t.Errorf("ToolName = %q", rec.ToolName)
	}
	if rec.ToolInput["file_path"] != "/a.go" {
		t.Errorf("ToolInput = %v", rec.ToolInput)
	}
	if rec.Timestamp == 0 {
		t.Error("Timestamp must be stamped")
	}
}

func TestParse_MalformedJSONDegrades(t *testing.T) {
	rec := Parse([]byte("{not json"))
	if rec.SessionID == "" {
		t.Error("session id must be synthesized")
	}
	if !strings.HasPrefix(rec.SessionID, "hook-") {
		t.Errorf("synthesized id = %q", rec.SessionID)
	}
	if rec.Project == "" {
		t.Error("project must be derived from process cwd")
	}
	if rec.Timestamp == 0 {
		t.Error("timestamp must be stamped")
	}
	if rec.ToolName != "" || rec.Prompt != "" {
		t.Error("degraded record must carry no tool/prompt fields")
	}
}

func TestParse_MissingFieldsSynthesized(t *testing.T) {
	rec := Parse([]byte(`{}`))
	if rec.SessionID == "" {
		t.Error("missing session id must be synthesized")
	}
	if rec.Cwd == "" {
		t.Error("missing cwd must default to process cwd")
	}
}

func TestProjectFromCwd(t *testing.T) {
	cases := []struct {
		cwd  string
		want string
	}{
		{"/home/dev/proj", "proj"},
		{"/home/dev/proj/", "unknown"},
		{`C:\work\thing\`, "unknown"},
		{"", "unknown"},
	}
	for _, c := range cases {
		if got := projectFromCwd(c.cwd); got != c.want {
			t.Errorf("projectFromCwd(%q) = %q, want %q", c.cwd, got, c.want)
		}
	}
}
