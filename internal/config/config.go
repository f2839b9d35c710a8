// Package config loads plansync.yaml, the per-project settings file, and
// resolves the input and output paths a sync run works with.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up at the project root.
const FileName = "plansync.yaml"

// PlanMode selects how the plan document is produced.
type PlanMode string

const (
	// PlanModeRender re-emits the outline from the parsed tree.
	PlanModeRender PlanMode = "render"
	// PlanModeAnnotate copies the source verbatim and injects markers.
	PlanModeAnnotate PlanMode = "annotate"
)

// ValidPlanModes is the set of accepted plan modes.
var ValidPlanModes = map[PlanMode]bool{
	PlanModeRender:   true,
	PlanModeAnnotate: true,
}

// JournalConfig controls the SQLite run history.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Config is the parsed plansync.yaml. Relative paths are relative to the
// project root.
type Config struct {
	Source      string `yaml:"source"`
	State       string `yaml:"state"`
	OutPlan     string `yaml:"out_plan"`
	OutTodoMD   string `yaml:"out_todo_md"`
	OutTodoJSON string `yaml:"out_todo_json"`

	GeneratedBy      string        `yaml:"generated_by"`
	PlanMode         PlanMode      `yaml:"plan_mode"`
	Strict           bool          `yaml:"strict"`
	ReopenOnNewChild bool          `yaml:"reopen_on_new_child"`
	Journal          JournalConfig `yaml:"journal"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Source:      "plan/plan_source.md",
		State:       "plan/plan_state.json",
		OutPlan:     "plan/plan_sync.md",
		OutTodoMD:   "plan/plan_sync_todo.md",
		OutTodoJSON: "plan/plan_todos.json",
		GeneratedBy: "plansync",
		PlanMode:    PlanModeRender,
		Journal: JournalConfig{
			Enabled: true,
			Path:    ".plansync/journal.db",
		},
	}
}

// Load reads root/plansync.yaml on top of the defaults. A missing file is
// not an error.
func Load(root string) (*Config, error) {
	cfg, err := LoadFile(filepath.Join(root, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// LoadFile reads the config file at path on top of the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values that yaml decoding cannot.
func (c *Config) Validate() error {
	if !ValidPlanModes[c.PlanMode] {
		return fmt.Errorf("invalid plan_mode %q (use render or annotate)", c.PlanMode)
	}
	for name, v := range map[string]string{
		"source": c.Source, "state": c.State, "out_plan": c.OutPlan,
		"out_todo_md": c.OutTodoMD, "out_todo_json": c.OutTodoJSON,
	} {
		if v == "" {
			return fmt.Errorf("config field %s must not be empty", name)
		}
	}
	return nil
}

// Paths holds the absolute file locations of one project.
type Paths struct {
	Root     string
	Source   string
	State    string
	Plan     string
	TodoMD   string
	Manifest string
	Journal  string
}

// Paths resolves every configured path against root.
func (c *Config) Paths(root string) Paths {
	return Paths{
		Root:     root,
		Source:   resolve(root, c.Source),
		State:    resolve(root, c.State),
		Plan:     resolve(root, c.OutPlan),
		TodoMD:   resolve(root, c.OutTodoMD),
		Manifest: resolve(root, c.OutTodoJSON),
		Journal:  resolve(root, c.Journal.Path),
	}
}

func resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// FindProjectRoot walks up from start looking for plansync.yaml, then for
// a plan/ directory holding the default source. It returns start when
// neither is found; the caller decides what to do.
func FindProjectRoot(start string) string {
	for _, marker := range []string{FileName, filepath.Join("plan", "plan_source.md")} {
		current := start
		for {
			if _, err := os.Stat(filepath.Join(current, marker)); err == nil {
				return current
			}
			parent := filepath.Dir(current)
			if parent == current {
				break
			}
			current = parent
		}
	}
	return start
}

// Init writes a commented default plansync.yaml to root. It refuses to
// overwrite an existing file unless force is set.
func Init(root string, force bool) (string, error) {
	path := filepath.Join(root, FileName)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%s already exists (use --force to overwrite)", FileName)
		}
	}
	if err := os.WriteFile(path, []byte(DefaultYAML), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", FileName, err)
	}
	return path, nil
}

// DefaultYAML is written by `plansync init`.
const DefaultYAML = `# plansync configuration. Paths are relative to this file.

# Hand-authored outline. plansync never edits it.
source: plan/plan_source.md

# Persisted statuses. Edit with ` + "`plansync set`" + `, not by hand.
state: plan/plan_state.json

# Generated artifacts. Commit them; ` + "`plansync check`" + ` rejects manual edits.
out_plan: plan/plan_sync.md
out_todo_md: plan/plan_sync_todo.md
out_todo_json: plan/plan_todos.json

generated_by: plansync

# render: re-emit the outline. annotate: copy the source and add markers.
plan_mode: render

# Treat missing sibling codes as errors.
strict: false

# Reopen a completed Step or Topic when a new item is added beneath it.
reopen_on_new_child: false

journal:
  enabled: true
  path: .plansync/journal.db
`
