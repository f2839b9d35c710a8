package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HendryAvila/plansync/internal/config"
	"github.com/HendryAvila/plansync/internal/journal"
	"github.com/mark3labs/mcp-go/mcp"
)

const testOutline = `# Plan

# Step 1 — Foundations
## 1.1 Parser
   1.1.1 Tokenize input
   1.1.2 Build tree
## 1.2 Renderer
   1.2.1 Plan document

# Step 2 — Release
## 2.1 Packaging
   2.1.1 Binaries
`

// --- Test helpers ---

// setupTestProject writes an outline into a temp project root and returns
// a workspace pointing at it.
func setupTestProject(t *testing.T, outline string) *Workspace {
	t.Helper()
	root := t.TempDir()
	src := config.Default().Paths(root).Source
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatalf("setup: mkdir: %v", err)
	}
	if err := os.WriteFile(src, []byte(outline), 0o644); err != nil {
		t.Fatalf("setup: write outline: %v", err)
	}
	return &Workspace{Root: root}
}

// withJournal attaches a fresh journal to ws.
func withJournal(t *testing.T, ws *Workspace) *Workspace {
	t.Helper()
	j, err := journal.New(journal.Config{Path: filepath.Join(ws.Root, ".plansync", "journal.db")})
	if err != nil {
		t.Fatalf("setup: journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	ws.Journal = j
	return ws
}

func callTool(t *testing.T, handle func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	return result
}

// isErrorResult checks if the result is a tool error.
func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// --- SyncTool ---

func TestSyncTool_Handle_Success(t *testing.T) {
	ws := setupTestProject(t, testOutline)
	tool := NewSyncTool(ws)

	result := callTool(t, tool.Handle, nil)
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	text := getResultText(result)
	if !strings.Contains(text, "Plan Synced") || !strings.Contains(text, "plan/plan_sync.md") {
		t.Errorf("unexpected result: %s", text)
	}
	if _, err := os.Stat(filepath.Join(ws.Root, "plan", "plan_todos.json")); err != nil {
		t.Errorf("manifest not written: %v", err)
	}

	again := getResultText(callTool(t, tool.Handle, nil))
	if !strings.Contains(again, "already up to date") {
		t.Errorf("second sync should write nothing, got: %s", again)
	}
}

func TestSyncTool_Handle_StructuralError(t *testing.T) {
	ws := setupTestProject(t, "# Step 1 — S\n## 1.1 T\n   1.1.1 A\n   1.1.1 B\n")
	tool := NewSyncTool(ws)

	result := callTool(t, tool.Handle, nil)
	if !isErrorResult(result) {
		t.Fatal("expected error result for duplicate codes")
	}
	if text := getResultText(result); !strings.Contains(text, "structural errors") || !strings.Contains(text, "duplicate") {
		t.Errorf("error should list the duplicate, got: %s", text)
	}
	if _, err := os.Stat(filepath.Join(ws.Root, "plan", "plan_sync.md")); !os.IsNotExist(err) {
		t.Error("nothing should be written on structural errors")
	}
}

func TestSyncTool_Handle_MissingSource(t *testing.T) {
	ws := &Workspace{Root: t.TempDir()}
	result := callTool(t, NewSyncTool(ws).Handle, nil)

	if !isErrorResult(result) {
		t.Fatal("expected error result for a missing outline")
	}
	if !strings.Contains(getResultText(result), "bootstrap") {
		t.Errorf("error should mention bootstrap, got: %s", getResultText(result))
	}
}

// --- SetStatusTool ---

func TestSetStatusTool_Handle_Propagates(t *testing.T) {
	ws := setupTestProject(t, testOutline)
	tool := NewSetStatusTool(ws)

	callTool(t, tool.Handle, map[string]any{"code": "1.1.1", "status": "done"})
	result := callTool(t, tool.Handle, map[string]any{"code": "1.1.2", "status": "finish"})
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	text := getResultText(result)
	if !strings.Contains(text, "1.1.2 Build tree** is now `completed`") {
		t.Errorf("missing confirmation: %s", text)
	}
	if !strings.Contains(text, "1.1 → completed") {
		t.Errorf("topic should propagate to completed: %s", text)
	}
	if !strings.Contains(text, "2/4 items complete (50%)") {
		t.Errorf("missing overall progress: %s", text)
	}
}

func TestSetStatusTool_Handle_BadInput(t *testing.T) {
	ws := setupTestProject(t, testOutline)
	tool := NewSetStatusTool(ws)

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing code", map[string]any{"status": "done"}, "'code' is required"},
		{"malformed code", map[string]any{"code": "1.x", "status": "done"}, "not a dotted numeric code"},
		{"bad status", map[string]any{"code": "1.1.1", "status": "blocked"}, "blocked"},
		{"unknown code", map[string]any{"code": "9.9.9", "status": "done"}, "unknown code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, tool.Handle, tt.args)
			if !isErrorResult(result) {
				t.Fatalf("expected error result, got: %s", getResultText(result))
			}
			if !strings.Contains(getResultText(result), tt.want) {
				t.Errorf("error = %q, want it to contain %q", getResultText(result), tt.want)
			}
		})
	}
}

// --- StatusTool ---

func TestStatusTool_Handle_ReadOnly(t *testing.T) {
	ws := setupTestProject(t, testOutline)
	callTool(t, NewSetStatusTool(ws).Handle, map[string]any{"code": "1.2.1", "status": "doing"})

	statePath := filepath.Join(ws.Root, "plan", "plan_state.json")
	before, err := os.ReadFile(statePath)
	if err != nil {
		t.Fatalf("reading state: %v", err)
	}

	text := getResultText(callTool(t, NewStatusTool(ws).Handle, map[string]any{"next": float64(2)}))
	if !strings.Contains(text, "0/4 items complete (0%), 1 in progress") {
		t.Errorf("unexpected overall line: %s", text)
	}
	if !strings.Contains(text, "⏳ Step 1 — Foundations | in-progress") {
		t.Errorf("step row missing: %s", text)
	}
	if !strings.Contains(text, "- `1.2.1` Plan document (in-progress)\n- `1.1.1` Tokenize input (pending)") {
		t.Errorf("next items should list in-progress first: %s", text)
	}

	after, _ := os.ReadFile(statePath)
	if string(before) != string(after) {
		t.Error("plan_status must not write the state file")
	}
}

// --- ValidateTool ---

func TestValidateTool_Handle_FixPreview(t *testing.T) {
	src := "# Step 1 — S\n## 1.1 T\n   1.1.1 A\n   1.1.3 C\n"
	ws := setupTestProject(t, src)

	result := callTool(t, NewValidateTool(ws).Handle, map[string]any{"fix_missing": true})
	if isErrorResult(result) {
		t.Fatalf("warnings alone should not be an error result: %s", getResultText(result))
	}

	text := getResultText(result)
	if !strings.Contains(text, "missing-sibling") {
		t.Errorf("warning not reported: %s", text)
	}
	if !strings.Contains(text, "+   1.1.2 TODO (auto-inserted)") {
		t.Errorf("fix preview missing: %s", text)
	}

	onDisk, _ := os.ReadFile(filepath.Join(ws.Root, "plan", "plan_source.md"))
	if string(onDisk) != src {
		t.Error("outline must not be modified")
	}
}

func TestValidateTool_Handle_StrictIsError(t *testing.T) {
	ws := setupTestProject(t, "# Step 1 — S\n## 1.1 T\n   1.1.2 B\n")
	result := callTool(t, NewValidateTool(ws).Handle, map[string]any{"strict": true})
	if !isErrorResult(result) {
		t.Errorf("strict gap should be an error result: %s", getResultText(result))
	}
}

// --- DriftTool ---

func TestDriftTool_Handle(t *testing.T) {
	ws := setupTestProject(t, testOutline)
	callTool(t, NewSyncTool(ws).Handle, nil)
	tool := NewDriftTool(ws)

	clean := callTool(t, tool.Handle, nil)
	if isErrorResult(clean) || !strings.Contains(getResultText(clean), "No Drift") {
		t.Fatalf("fresh sync should not drift: %s", getResultText(clean))
	}

	plan := filepath.Join(ws.Root, "plan", "plan_sync.md")
	data, _ := os.ReadFile(plan)
	edited := strings.Replace(string(data), "1.1.1 Tokenize input", "✅ 1.1.1 Tokenize input", 1)
	if err := os.WriteFile(plan, []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}

	drifted := callTool(t, tool.Handle, nil)
	if !isErrorResult(drifted) {
		t.Fatal("hand-edited plan should drift")
	}
	if text := getResultText(drifted); !strings.Contains(text, "## plan") || !strings.Contains(text, "-   ✅ 1.1.1 Tokenize input") {
		t.Errorf("drift report missing diff: %s", text)
	}
}

// --- Journal tools ---

func TestJournalTools_Disabled(t *testing.T) {
	ws := setupTestProject(t, testOutline)

	if r := callTool(t, NewHistoryTool(ws).Handle, nil); !isErrorResult(r) {
		t.Error("history without a journal should be an error result")
	}
	if r := callTool(t, NewSearchTool(ws).Handle, map[string]any{"query": "parser"}); !isErrorResult(r) {
		t.Error("search without a journal should be an error result")
	}
}

func TestJournalTools_HistoryAndSearch(t *testing.T) {
	ws := withJournal(t, setupTestProject(t, testOutline))
	callTool(t, NewSyncTool(ws).Handle, nil)
	callTool(t, NewSetStatusTool(ws).Handle, map[string]any{"code": "2.1.1", "status": "done"})

	history := getResultText(callTool(t, NewHistoryTool(ws).Handle, nil))
	if !strings.Contains(history, "# Sync History") || strings.Count(history, "| mcp |") != 2 {
		t.Errorf("expected two mcp runs: %s", history)
	}

	codeHistory := getResultText(callTool(t, NewHistoryTool(ws).Handle, map[string]any{"code": "2.1.1"}))
	if !strings.Contains(codeHistory, "| pending | completed | set |") {
		t.Errorf("expected the set transition for 2.1.1: %s", codeHistory)
	}

	found := getResultText(callTool(t, NewSearchTool(ws).Handle, map[string]any{"query": "tokenize"}))
	if !strings.Contains(found, "`1.1.1` Tokenize input (item, pending)") {
		t.Errorf("search should find 1.1.1: %s", found)
	}

	if r := callTool(t, NewSearchTool(ws).Handle, map[string]any{}); !isErrorResult(r) {
		t.Error("empty query should be an error result")
	}
}
