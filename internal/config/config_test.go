package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_MatchesDefaultYAML(t *testing.T) {
	dir := t.TempDir()
	if _, err := Init(dir, false); err != nil {
		t.Fatalf("Init: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("init file decodes to %+v, want defaults %+v", cfg, Default())
	}
}

func TestInit_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	if _, err := Init(dir, false); err != nil {
		t.Fatal(err)
	}
	if _, err := Init(dir, false); err == nil {
		t.Error("second Init without force should fail")
	}
	if _, err := Init(dir, true); err != nil {
		t.Errorf("Init with force: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source != "plan/plan_source.md" || cfg.PlanMode != PlanModeRender || !cfg.Journal.Enabled {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_Overrides(t *testing.T) {
	dir := t.TempDir()
	yml := "source: docs/outline.md\nplan_mode: annotate\nstrict: true\njournal:\n  enabled: false\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source != "docs/outline.md" {
		t.Errorf("Source = %s", cfg.Source)
	}
	if cfg.PlanMode != PlanModeAnnotate || !cfg.Strict || cfg.Journal.Enabled {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.State != "plan/plan_state.json" || cfg.Journal.Path != ".plansync/journal.db" {
		t.Error("unset fields should keep their defaults")
	}
}

func TestLoad_InvalidPlanMode(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("plan_mode: fancy\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected invalid plan_mode error")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("source: [unclosed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected parse error")
	}
}

func TestPaths_ResolvesAgainstRoot(t *testing.T) {
	cfg := Default()
	cfg.State = "/abs/state.json"
	p := cfg.Paths("/repo")

	if p.Source != filepath.Join("/repo", "plan", "plan_source.md") {
		t.Errorf("Source = %s", p.Source)
	}
	if p.State != "/abs/state.json" {
		t.Errorf("absolute path should be kept, got %s", p.State)
	}
	if p.Journal != filepath.Join("/repo", ".plansync", "journal.db") {
		t.Errorf("Journal = %s", p.Journal)
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	if _, err := Init(root, false); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	if got := FindProjectRoot(nested); got != root {
		t.Errorf("FindProjectRoot = %s, want %s", got, root)
	}

	lonely := t.TempDir()
	if got := FindProjectRoot(lonely); got != lonely {
		t.Errorf("no marker: got %s, want start dir", got)
	}
}

func TestFindProjectRoot_PlanDirectoryFallback(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "plan", "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "plan", "plan_source.md"), []byte("# Step 1 — x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := FindProjectRoot(filepath.Join(root, "plan", "sub")); got != root {
		t.Errorf("FindProjectRoot = %s, want %s", got, root)
	}
}
