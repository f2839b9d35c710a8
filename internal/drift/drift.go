// Package drift proves that the committed artifacts are exactly what the
// current source and state would generate. It regenerates into a scratch
// directory and compares under declared rules; the working tree is never
// written.
package drift

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/HendryAvila/plansync/internal/config"
	"github.com/HendryAvila/plansync/internal/pipeline"
)

// volatileFields are state and manifest keys that legitimately change on
// every sync.
var volatileFields = []string{"lastSyncAt", "lastUpdated", "lastUpdatedAt"}

// DefaultRules declares the comparison for each of the four artifacts.
func DefaultRules(p config.Paths) []Rule {
	return []Rule{
		{Name: "plan", Path: p.Plan, Format: FormatMarkdown, StripProvenance: true},
		{Name: "todo", Path: p.TodoMD, Format: FormatMarkdown, StripProvenance: true},
		{Name: "manifest", Path: p.Manifest, Format: FormatJSON, VolatileFields: volatileFields},
		{Name: "state", Path: p.State, Format: FormatJSON, VolatileFields: volatileFields},
	}
}

// Mismatch is one artifact that differs from its regenerated form.
type Mismatch struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Missing bool   `json:"missing,omitempty"`
	Diff    string `json:"diff,omitempty"`
}

// Report is the result of a drift check.
type Report struct {
	Checked    int        `json:"checked"`
	Mismatches []Mismatch `json:"mismatches"`
}

// Drifted reports whether any artifact differs.
func (r *Report) Drifted() bool {
	return len(r.Mismatches) > 0
}

// Err returns an *Error listing the drifted files, or nil.
func (r *Report) Err() error {
	if !r.Drifted() {
		return nil
	}
	e := &Error{}
	for _, m := range r.Mismatches {
		e.Files = append(e.Files, m.Path)
	}
	return e
}

// Error reports drifted artifacts.
type Error struct {
	Files []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("generated files drifted from source: %s; run `plansync` to regenerate and commit the result",
		strings.Join(e.Files, ", "))
}

// Check regenerates every artifact from the real source and the committed
// state into a scratch directory and compares the results with the
// committed files. opts.Paths names the committed locations; Overrides and
// Recorder are ignored.
func Check(ctx context.Context, opts pipeline.Options) (*Report, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	scratch, err := os.MkdirTemp("", "plansync-drift-*")
	if err != nil {
		return nil, fmt.Errorf("creating scratch dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	committed := opts.Paths
	scratchPaths := committed
	scratchPaths.Plan = filepath.Join(scratch, "plan.md")
	scratchPaths.TodoMD = filepath.Join(scratch, "todo.md")
	scratchPaths.Manifest = filepath.Join(scratch, "manifest.json")
	scratchPaths.State = filepath.Join(scratch, "state.json")

	seeds := map[string]string{
		committed.Plan:     scratchPaths.Plan,
		committed.TodoMD:   scratchPaths.TodoMD,
		committed.Manifest: scratchPaths.Manifest,
		committed.State:    scratchPaths.State,
	}
	for from, to := range seeds {
		if err := copyIfExists(from, to); err != nil {
			return nil, err
		}
	}

	run := opts
	run.Paths = scratchPaths
	run.Overrides = nil
	run.Recorder = nil
	run.Logger = log
	if _, err := pipeline.Run(ctx, run); err != nil {
		return nil, err
	}

	rep := &Report{}
	cmp := Comparator{}
	regenerated := DefaultRules(scratchPaths)
	for i, rule := range DefaultRules(committed) {
		rep.Checked++

		want, err := os.ReadFile(regenerated[i].Path)
		if err != nil {
			return nil, fmt.Errorf("reading regenerated %s: %w", rule.Name, err)
		}
		got, err := os.ReadFile(rule.Path)
		if errors.Is(err, os.ErrNotExist) {
			rep.Mismatches = append(rep.Mismatches, Mismatch{Name: rule.Name, Path: rule.Path, Missing: true})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading committed %s: %w", rule.Name, err)
		}

		diff, err := cmp.Compare(rule, got, want)
		if err != nil {
			// Unparseable committed JSON is drift, not a failure.
			diff = err.Error()
		}
		if diff != "" {
			log.Debug("artifact drifted", "name", rule.Name, "path", rule.Path)
			rep.Mismatches = append(rep.Mismatches, Mismatch{Name: rule.Name, Path: rule.Path, Diff: diff})
		}
	}
	return rep, nil
}

func copyIfExists(from, to string) error {
	data, err := os.ReadFile(from)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("seeding scratch dir: %w", err)
	}
	if err := os.WriteFile(to, data, 0o644); err != nil {
		return fmt.Errorf("seeding scratch dir: %w", err)
	}
	return nil
}
