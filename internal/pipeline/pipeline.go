// Package pipeline runs one sync: read the outline and state, validate,
// parse, merge, propagate, render, and write every artifact together.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/HendryAvila/plansync/internal/config"
	"github.com/HendryAvila/plansync/internal/journal"
	"github.com/HendryAvila/plansync/internal/outline"
	"github.com/HendryAvila/plansync/internal/render"
	"github.com/HendryAvila/plansync/internal/state"
	"github.com/HendryAvila/plansync/internal/validate"
)

// Recorder receives a summary of every run that changed something.
// *journal.Store satisfies it.
type Recorder interface {
	RecordRun(ctx context.Context, run journal.Run) (string, error)
}

// Options configures a run.
type Options struct {
	Paths            config.Paths
	GeneratedBy      string
	PlanMode         config.PlanMode
	Strict           bool
	ReopenOnNewChild bool

	// Overrides sets statuses before propagation, as `plansync set` does.
	Overrides map[string]outline.Status

	// Trigger labels the run in the journal (cli, set, watch, mcp).
	Trigger string

	Logger   *slog.Logger
	Recorder Recorder
}

// OptionsFromConfig builds run options from a loaded config.
func OptionsFromConfig(cfg *config.Config, root string) Options {
	return Options{
		Paths:            cfg.Paths(root),
		GeneratedBy:      cfg.GeneratedBy,
		PlanMode:         cfg.PlanMode,
		Strict:           cfg.Strict,
		ReopenOnNewChild: cfg.ReopenOnNewChild,
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// Artifacts is everything a run produces, before anything is written.
type Artifacts struct {
	Tree     *outline.Tree
	Report   *validate.Report
	Prior    *state.Store
	Store    *state.Store
	Merge    state.MergeResult
	Changes  []state.Change
	Checksum string

	Transitions []journal.Transition

	Plan     string
	TodoMD   string
	Manifest []byte
	State    []byte
}

// Files lists the artifacts in write order.
func (a *Artifacts) Files(p config.Paths) []File {
	return []File{
		{Path: p.Plan, Data: []byte(a.Plan)},
		{Path: p.TodoMD, Data: []byte(a.TodoMD)},
		{Path: p.Manifest, Data: a.Manifest},
		{Path: p.State, Data: a.State},
	}
}

// Generate computes every artifact in memory. It reads the source and
// state files but writes nothing. Validation errors return a
// *StructuralError that carries the full report.
func Generate(ctx context.Context, opts Options) (*Artifacts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := opts.logger()
	paths := opts.Paths

	src, err := os.ReadFile(paths.Source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &IOError{Op: "read source", Path: paths.Source,
				Err: fmt.Errorf("%w (run `plansync bootstrap` to recover it from the generated plan)", ErrSourceMissing)}
		}
		return nil, &IOError{Op: "read source", Path: paths.Source, Err: err}
	}
	text := string(src)

	rep := validate.Validate(text, validate.Options{Strict: opts.Strict})
	for _, is := range rep.Warnings() {
		log.Warn("plan validation", "kind", is.Kind, "code", is.Code, "detail", is.Message)
	}
	if rep.HasErrors() {
		for _, is := range rep.Errors() {
			log.Error("plan validation", "kind", is.Kind, "code", is.Code, "detail", is.Message)
		}
		return nil, &StructuralError{Report: rep}
	}

	tree := outline.Parse(text)
	for _, d := range tree.Diagnostics {
		log.Warn("reparented node", "line", d.Line, "code", d.Code,
			"missing_parent", d.WantParent, "attached_to", d.AttachedTo)
	}

	prior, err := state.Load(paths.State, opts.GeneratedBy)
	if err != nil {
		return nil, &IOError{Op: "load state", Path: paths.State, Err: err}
	}

	next, merged := state.Merge(tree, prior, state.MergeOptions{ReopenOnNewChild: opts.ReopenOnNewChild})
	logMerge(log, merged)

	if err := applyOverrides(tree, next, opts.Overrides); err != nil {
		return nil, err
	}

	changes := state.Propagate(tree)
	next.Apply(changes)
	for _, c := range changes {
		log.Debug("propagated status", "code", c.Code, "from", c.From, "to", c.To)
	}
	next.Touch(prior, timeNow())
	state.DeriveMarkers(tree)

	checksum := render.Checksum(text)
	prov := render.Provenance{
		SourceRel: render.RelPath(paths.Root, paths.Source),
		StateRel:  render.RelPath(paths.Root, paths.State),
	}

	a := &Artifacts{
		Tree: tree, Report: rep, Prior: prior, Store: next,
		Merge: merged, Changes: changes, Checksum: checksum,
		TodoMD: render.Todo(tree),
	}
	a.Transitions = transitions(tree, prior, next, opts.Overrides, merged, changes)

	if opts.PlanMode == config.PlanModeAnnotate {
		a.Plan = render.Annotate(text, tree, checksum, prov)
	} else {
		a.Plan = render.Plan(tree, checksum, prov)
	}

	generatedBy := next.GeneratedBy
	if opts.GeneratedBy != "" {
		generatedBy = opts.GeneratedBy
	}
	if a.Manifest, err = render.Manifest(tree, generatedBy); err != nil {
		return nil, err
	}
	if a.State, err = next.Encode(); err != nil {
		return nil, err
	}
	return a, nil
}

// Result reports what Run did.
type Result struct {
	*Artifacts
	Written []string
	RunID   string
}

// Run generates and writes all artifacts, then records the run when a
// Recorder is configured and something changed. A journal failure is
// logged, never returned.
func Run(ctx context.Context, opts Options) (*Result, error) {
	log := opts.logger()

	a, err := Generate(ctx, opts)
	if err != nil {
		return nil, err
	}

	written, err := Write(a.Files(opts.Paths))
	if err != nil {
		return nil, fmt.Errorf("writing artifacts: %w", err)
	}
	res := &Result{Artifacts: a, Written: written}

	for _, p := range written {
		log.Debug("wrote artifact", "path", p)
	}
	log.Info("sync complete", "nodes", len(a.Tree.Nodes()), "written", len(written),
		"transitions", len(a.Transitions))

	if opts.Recorder != nil && (len(written) > 0 || len(a.Transitions) > 0) {
		id, err := opts.Recorder.RecordRun(ctx, journalRun(a, opts.Trigger))
		if err != nil {
			log.Warn("journal record failed", "error", err)
		} else {
			res.RunID = id
		}
	}
	return res, nil
}

func logMerge(log *slog.Logger, m state.MergeResult) {
	if len(m.Pruned) > 0 {
		log.Info("pruned stale codes", "codes", m.Pruned)
	}
	if len(m.Coerced) > 0 {
		log.Warn("coerced invalid statuses to pending", "codes", m.Coerced)
	}
	if len(m.Reopened) > 0 {
		log.Info("reopened ancestors of new items", "codes", m.Reopened)
	}
	if len(m.Added) > 0 {
		log.Debug("added new codes", "count", len(m.Added))
	}
}

func applyOverrides(tree *outline.Tree, next *state.Store, overrides map[string]outline.Status) error {
	for code, s := range overrides {
		if tree.Find(code) == nil {
			return fmt.Errorf("%w: %s", ErrUnknownCode, code)
		}
		if !s.Valid() {
			return fmt.Errorf("invalid status %q for %s", s, code)
		}
		next.StatusByCode[code] = s
		tree.Walk(func(n *outline.Node) {
			if n.Code == code {
				n.Status = s
			}
		})
	}
	return nil
}

// transitions lists every code whose status differs from the prior store,
// labelled with what moved it. New pending codes are not transitions.
func transitions(tree *outline.Tree, prior, next *state.Store, overrides map[string]outline.Status,
	m state.MergeResult, changes []state.Change) []journal.Transition {

	cause := make(map[string]string)
	for _, c := range m.Coerced {
		cause[c] = "coerced"
	}
	for c := range overrides {
		cause[c] = "set"
	}
	for _, c := range m.Reopened {
		cause[c] = "reopened"
	}
	for _, c := range changes {
		cause[c.Code] = "propagated"
	}

	var out []journal.Transition
	for _, n := range tree.Nodes() {
		from, had := prior.StatusByCode[n.Code]
		to := next.StatusByCode[n.Code]
		if from == to || (!had && to == outline.StatusPending) {
			continue
		}
		why := cause[n.Code]
		if why == "" {
			why = "added"
		}
		out = append(out, journal.Transition{
			Code: n.Code, Title: n.Title, From: string(from), To: string(to), Cause: why,
		})
	}
	return out
}

func journalRun(a *Artifacts, trigger string) journal.Run {
	if trigger == "" {
		trigger = "cli"
	}
	p := Summarize(a.Tree, 0)
	run := journal.Run{
		Trigger:     trigger,
		Checksum:    a.Checksum,
		Total:       p.Total,
		Completed:   p.Done,
		InProgress:  p.InProgress,
		Pruned:      a.Merge.Pruned,
		Transitions: a.Transitions,
		Nodes:       []journal.Node{},
	}
	a.Tree.Walk(func(n *outline.Node) {
		run.Nodes = append(run.Nodes, journal.Node{
			Code: n.Code, Kind: string(n.Kind), Title: n.Title, Status: string(n.Status),
		})
	})
	return run
}
