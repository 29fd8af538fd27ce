package capture

import (
	"testing"

	"github.com/brindlecode/codemem/internal/store"
)

func TestClassifyTool(t *testing.T) {
	cases := []struct {
		tool string
		want store.ObservationType
	}{
		{"Read", store.ObsRead},
		{"Glob", store.ObsRead},
		{"Grep", store.ObsRead},
		{"LS", store.ObsRead},
		{"Write", store.ObsWrite},
		{"Edit", store.ObsWrite},
		{"NotebookEdit", store.ObsWrite},
		{"Bash", store.ObsExecute},
		{"Task", store.ObsExecute},
		{"Skill", store.ObsExecute},
		{"WebSearch", store.ObsSearch},
		{"WebFetch", store.ObsSearch},
		{"SomethingNovel", store.ObsOther},
		{"", store.ObsOther},
	}
	for _, c := range cases {
		if got := ClassifyTool(c.tool); got != c.want {
			t.Errorf("ClassifyTool(%q) = %q, want %q", c.tool, got, c.want)
		}
	}
}

func TestIsInternalTool(t *testing.T) {
	for _, tool := range []string{"TodoWrite", "TodoRead", "AskFollowupQuestion", "AttemptCompletion"} {
		if !IsInternalTool(tool) {
			t.Errorf("expected %q to be internal", tool)
		}
	}
	if IsInternalTool("Bash") {
		t.Error("Bash must not be internal")
	}
}

func TestTitleFor(t *testing.T) {
	cases := []struct {
		tool  string
		input map[string]any
		want  string
	}{
		{"Read", map[string]any{"file_path": "/tmp/a.go"}, "Read /tmp/a.go"},
		{"Read", nil, "Read file"},
		{"Write", map[string]any{"file_path": "/tmp/b.go"}, "Write /tmp/b.go"},
		{"Edit", map[string]any{"path": "/tmp/c.go"}, "Edit /tmp/c.go"},
		{"Glob", map[string]any{"pattern": "**/*.go"}, "Find **/*.go"},
		{"Grep", map[string]any{"pattern": "func main"}, `Search "func main"`},
		{"Task", nil, "Task: agent"},
		{"Task", map[string]any{"description": "fix tests"}, "Task: fix tests"},
		{"WebSearch", map[string]any{"query": "go heap"}, "Search: go heap"},
		{"WebFetch", map[string]any{"url": "https://example.com"}, "Fetch: https://example.com"},
		{"MysteryTool", nil, "MysteryTool"},
	}
	for _, c := range cases {
		if got := TitleFor(c.tool, c.input); got != c.want {
			t.Errorf("TitleFor(%q, %v) = %q, want %q", c.tool, c.input, got, c.want)
		}
	}
}

func TestTitleFor_BashTruncatesCommand(t *testing.T) {
	long := ""
	for i := 0; i < 10; i++ {
		long += "0123456789"
	}
	got := TitleFor("Bash", map[string]any{"command": long})
	want := "Run: " + long[:50] + "…"
	if got != want {
		t.Errorf("TitleFor(Bash) = %q, want %q", got, want)
	}
}

func TestExtractFilePaths(t *testing.T) {
	got := ExtractFilePaths(store.ObsRead, map[string]any{"file_path": "/x"})
	if len(got) != 1 || got[0] != "/x" {
		t.Fatalf("read extraction = %v", got)
	}
	got = ExtractFilePaths(store.ObsWrite, map[string]any{"path": "/y"})
	if len(got) != 1 || got[0] != "/y" {
		t.Fatalf("write extraction = %v", got)
	}
	if got := ExtractFilePaths(store.ObsExecute, map[string]any{"file_path": "/z"}); got != nil {
		t.Fatalf("execute tools must not yield paths, got %v", got)
	}
	if got := ExtractFilePaths(store.ObsRead, map[string]any{"file_path": 42}); got != nil {
		t.Fatalf("wrong-typed path must be swallowed, got %v", got)
	}
}

func TestStripPrivateTags(t *testing.T) {
	in := "keep <private>secret stuff</private> this"
	want := "keep [REDACTED] this"
	if got := stripPrivateTags(in); got != want {
		t.Errorf("stripPrivateTags = %q, want %q", got, want)
	}
}
