package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HendryAvila/plansync/internal/config"
	"github.com/HendryAvila/plansync/internal/drift"
	"github.com/HendryAvila/plansync/internal/pipeline"
	"github.com/HendryAvila/plansync/internal/validate"
)

const outlineText = `# Release plan

# Step 1 — Foundations
## 1.1 Parser
   1.1.1 Tokenize
   1.1.2 Build tree
## 1.2 Renderer
   1.2.1 Plan document
`

// newProject writes a default plansync.yaml and the outline into a temp
// root and returns the config path.
func newProject(t *testing.T, outline string) (root, cfgPath string) {
	t.Helper()
	root = t.TempDir()
	cfgPath, err := config.Init(root, false)
	if err != nil {
		t.Fatalf("setup: init: %v", err)
	}
	if outline != "" {
		src := filepath.Join(root, "plan", "plan_source.md")
		if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(src, []byte(outline), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root, cfgPath
}

// run executes the CLI and returns its exit code and stdout.
func run(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(args, &stdout, &stderr)
	t.Logf("plansync %s → %d\nstdout:\n%s\nstderr:\n%s", strings.Join(args, " "), code, stdout.String(), stderr.String())
	return code, stdout.String()
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

// --- Exit codes ---

func TestExitCode(t *testing.T) {
	structural := &pipeline.StructuralError{Report: &validate.Report{Issues: []validate.Issue{
		{Kind: validate.IssueDuplicate, Severity: validate.SeverityError},
	}}}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"generic", errors.New("boom"), exitFailure},
		{"explicit", &exitError{code: 1}, 1},
		{"structural", fmt.Errorf("run: %w", structural), exitStructural},
		{"drift", &drift.Error{Files: []string{"a"}}, exitStructural},
		{"source missing", &pipeline.IOError{Op: "read", Path: "x", Err: pipeline.ErrSourceMissing}, exitIO},
		{"io", &pipeline.IOError{Op: "read", Path: "x", Err: os.ErrPermission}, exitIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// --- Generate ---

func TestGenerate_WritesArtifactsThenIsIdempotent(t *testing.T) {
	root, cfg := newProject(t, outlineText)

	code, out := run(t, "--config", cfg)
	if code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(out, "plan/plan_sync.md") {
		t.Errorf("output should list written files: %s", out)
	}
	for _, name := range []string{"plan_sync.md", "plan_sync_todo.md", "plan_todos.json", "plan_state.json"} {
		if _, err := os.Stat(filepath.Join(root, "plan", name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	code, out = run(t, "--config", cfg)
	if code != exitOK || !strings.Contains(out, "up to date") {
		t.Errorf("second run: exit %d, out %q", code, out)
	}
}

func TestGenerate_PrintAndOverride(t *testing.T) {
	root, cfg := newProject(t, outlineText)
	altPlan := filepath.Join(root, "elsewhere.md")

	code, out := run(t, "--config", cfg, "--out-plan", altPlan, "--print", "--quiet")
	if code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	if !strings.HasPrefix(out, "<!-- plansync:generated true -->") {
		t.Errorf("--print should emit the plan; got %q", out)
	}
	if _, err := os.Stat(altPlan); err != nil {
		t.Errorf("--out-plan ignored: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "plan", "plan_sync.md")); !os.IsNotExist(err) {
		t.Error("default plan path should not be written when overridden")
	}
}

func TestGenerate_StructuralErrorExit2(t *testing.T) {
	root, cfg := newProject(t, "# Step 1 — S\n## 1.1 T\n   1.1.1 A\n   1.1.1 B\n")

	if code, _ := run(t, "--config", cfg); code != exitStructural {
		t.Errorf("exit = %d, want %d", code, exitStructural)
	}
	if _, err := os.Stat(filepath.Join(root, "plan", "plan_sync.md")); !os.IsNotExist(err) {
		t.Error("nothing should be written")
	}
}

func TestGenerate_MissingSourceExit3(t *testing.T) {
	_, cfg := newProject(t, "")
	if code, _ := run(t, "--config", cfg); code != exitIO {
		t.Errorf("exit = %d, want %d", code, exitIO)
	}
}

// --- Validate ---

func TestValidate_ExitCodes(t *testing.T) {
	gap := "# Step 1 — S\n## 1.1 T\n   1.1.1 A\n   1.1.3 C\n"

	tests := []struct {
		name    string
		outline string
		args    []string
		want    int
	}{
		{"clean", outlineText, []string{"validate"}, exitOK},
		{"warning", gap, []string{"validate"}, exitFailure},
		{"strict warning", gap, []string{"validate", "--strict"}, exitStructural},
		{"root flag", gap, []string{"--validate"}, exitFailure},
		{"orphan", "# Step 1 — S\n## 1.1 T\n   1.1.5.1 Lost\n", []string{"validate"}, exitStructural},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, cfg := newProject(t, tt.outline)
			if code, _ := run(t, append(tt.args, "--config", cfg)...); code != tt.want {
				t.Errorf("exit = %d, want %d", code, tt.want)
			}
		})
	}
}

func TestValidate_FixMissingPreviewsOnly(t *testing.T) {
	gap := "# Step 1 — S\n## 1.1 T\n   1.1.1 A\n   1.1.3 C\n"
	root, cfg := newProject(t, gap)

	_, out := run(t, "validate", "--fix-missing", "--config", cfg)
	if !strings.Contains(out, "+   1.1.2 TODO (auto-inserted)") {
		t.Errorf("missing diff preview: %s", out)
	}
	if got := readFile(t, filepath.Join(root, "plan", "plan_source.md")); got != gap {
		t.Error("outline must not be modified")
	}
}

// --- check ---

func TestCheck_DetectsHandEdit(t *testing.T) {
	root, cfg := newProject(t, outlineText)
	run(t, "--config", cfg)

	if code, _ := run(t, "check", "--config", cfg); code != exitOK {
		t.Fatalf("fresh tree should not drift, exit %d", code)
	}

	plan := filepath.Join(root, "plan", "plan_sync.md")
	edited := strings.Replace(readFile(t, plan), "1.1.1 Tokenize", "✅ 1.1.1 Tokenize", 1)
	if err := os.WriteFile(plan, []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}

	code, out := run(t, "check", "--config", cfg)
	if code != exitStructural {
		t.Errorf("exit = %d, want %d", code, exitStructural)
	}
	if !strings.Contains(out, "plan/plan_sync.md: differs") {
		t.Errorf("drifted file not named: %s", out)
	}
	if readFile(t, plan) != edited {
		t.Error("check must not rewrite the working tree")
	}
}

// --- set / status ---

func TestSet_CompactFormAndPropagation(t *testing.T) {
	root, cfg := newProject(t, outlineText)

	if code, _ := run(t, "set", "1.1.1", "done", "--config", cfg); code != exitOK {
		t.Fatalf("set exit = %d", code)
	}
	if code, _ := run(t, "set", "1.1.2- finish", "--config", cfg); code != exitOK {
		t.Fatalf("compact set exit = %d", code)
	}

	var st struct {
		StatusByCode map[string]string `json:"statusByCode"`
	}
	if err := json.Unmarshal([]byte(readFile(t, filepath.Join(root, "plan", "plan_state.json"))), &st); err != nil {
		t.Fatal(err)
	}
	if st.StatusByCode["1.1"] != "completed" {
		t.Errorf("1.1 = %q, want completed", st.StatusByCode["1.1"])
	}
	if st.StatusByCode["1"] != "pending" {
		t.Errorf("step 1 = %q, want pending (1.2 still open)", st.StatusByCode["1"])
	}

	if code, _ := run(t, "set", "9.9", "done", "--config", cfg); code != exitFailure {
		t.Errorf("unknown code exit = %d, want %d", code, exitFailure)
	}
	if code, _ := run(t, "set", "1.1.1", "blocked", "--config", cfg); code != exitFailure {
		t.Errorf("bad status exit = %d, want %d", code, exitFailure)
	}
}

func TestStatus_JSON(t *testing.T) {
	_, cfg := newProject(t, outlineText)
	run(t, "set", "1.2.1", "start", "--config", cfg)

	code, out := run(t, "status", "--json", "--next", "2", "--config", cfg)
	if code != exitOK {
		t.Fatalf("exit = %d", code)
	}

	var p pipeline.Progress
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		t.Fatalf("status --json is not JSON: %v", err)
	}
	if p.Total != 3 || p.InProgress != 1 || len(p.Next) != 2 || p.Next[0].Code != "1.2.1" {
		t.Errorf("progress = %+v", p)
	}
}

func TestStatus_Text(t *testing.T) {
	_, cfg := newProject(t, outlineText)
	code, out := run(t, "status", "--config", cfg)
	if code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(out, "Step 1 — Foundations") || !strings.Contains(out, "0/3 items complete") {
		t.Errorf("unexpected status output: %s", out)
	}
}

// --- bootstrap ---

func TestBootstrap_RecoversSource(t *testing.T) {
	root, cfg := newProject(t, outlineText)
	run(t, "set", "1.1.1", "done", "--config", cfg)

	src := filepath.Join(root, "plan", "plan_source.md")
	if err := os.Remove(src); err != nil {
		t.Fatal(err)
	}

	if code, _ := run(t, "bootstrap", "--config", cfg); code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	got := readFile(t, src)
	if strings.Contains(got, "✅") || strings.Contains(got, "plansync:") {
		t.Errorf("bootstrap should strip markers and provenance:\n%s", got)
	}
	if !strings.Contains(got, "1.1.1 Tokenize") {
		t.Errorf("recovered outline lost items:\n%s", got)
	}

	_, out := run(t, "bootstrap", "--config", cfg)
	if !strings.Contains(out, "already exists") {
		t.Errorf("second bootstrap should be a no-op: %s", out)
	}
}

// --- journal ---

func TestHistoryAndSearch(t *testing.T) {
	_, cfg := newProject(t, outlineText)
	run(t, "--config", cfg)
	run(t, "set", "1.1.2", "done", "--config", cfg)

	code, out := run(t, "history", "--config", cfg)
	if code != exitOK || !strings.Contains(out, " cli ") || !strings.Contains(out, " set ") {
		t.Errorf("history: exit %d, out %q", code, out)
	}

	_, out = run(t, "history", "--code", "1.1.2", "--config", cfg)
	if !strings.Contains(out, "completed") || !strings.Contains(out, "set") {
		t.Errorf("code history: %q", out)
	}

	_, out = run(t, "search", "tree", "--config", cfg)
	if !strings.Contains(out, "1.1.2 Build tree") {
		t.Errorf("search: %q", out)
	}
}

// --- misc ---

func TestVersionAndInit(t *testing.T) {
	if _, out := run(t, "version"); !strings.HasPrefix(out, "plansync ") {
		t.Errorf("version output = %q", out)
	}

	dir := t.TempDir()
	orig, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(orig) }()

	if code, _ := run(t, "init"); code != exitOK {
		t.Fatalf("init exit = %d", code)
	}
	if code, _ := run(t, "init"); code != exitFailure {
		t.Errorf("second init should refuse to overwrite, exit %d", code)
	}
	if code, _ := run(t, "init", "--force"); code != exitOK {
		t.Errorf("init --force exit = %d", code)
	}
}
