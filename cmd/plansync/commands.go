package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/HendryAvila/plansync/internal/config"
	"github.com/HendryAvila/plansync/internal/drift"
	"github.com/HendryAvila/plansync/internal/journal"
	"github.com/HendryAvila/plansync/internal/outline"
	"github.com/HendryAvila/plansync/internal/pipeline"
	"github.com/HendryAvila/plansync/internal/render"
	"github.com/HendryAvila/plansync/internal/server"
	"github.com/HendryAvila/plansync/internal/state"
	"github.com/HendryAvila/plansync/internal/ux"
	"github.com/HendryAvila/plansync/internal/validate"
	"github.com/HendryAvila/plansync/internal/watch"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

// --- generate ---

func (a *app) runGenerate(ctx context.Context, cmd *cobra.Command, overrides map[string]outline.Status, trigger string, printPlan bool) error {
	opts, cleanup, err := a.options(cmd, trigger, true)
	if err != nil {
		return err
	}
	defer cleanup()
	opts.Overrides = overrides

	res, err := pipeline.Run(ctx, opts)
	if err != nil {
		return err
	}

	nodes := len(res.Tree.Nodes())
	if len(res.Written) == 0 {
		a.out.Success("up to date (%d nodes)", nodes)
	} else {
		names := make([]string, len(res.Written))
		for i, p := range res.Written {
			names[i] = render.RelPath(opts.Paths.Root, p)
		}
		a.out.Success("synced %d nodes; wrote %s", nodes, strings.Join(names, ", "))
	}
	if n := len(res.Report.Warnings()); n > 0 {
		a.out.Warning("%d validation warning(s); run `plansync validate` for details", n)
	}

	if printPlan {
		_, _ = fmt.Fprint(a.stdout, res.Plan)
	}
	return nil
}

// --- validate ---

func (a *app) validateCmd() *cobra.Command {
	var fixMissing bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the outline for duplicate, malformed, orphaned and missing codes",
		Long: `Validate the outline without writing anything.

Exit status is 0 when clean, 1 when only warnings were found, and 2 on
structural errors (or on warnings with --strict).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runValidate(cmd, fixMissing)
		},
	}
	cmd.Flags().BoolVar(&fixMissing, "fix-missing", false, "preview placeholder lines for every missing code (the outline is not modified)")
	return cmd
}

func (a *app) runValidate(cmd *cobra.Command, fixMissing bool) error {
	opts, _, err := a.options(cmd, "cli", false)
	if err != nil {
		return err
	}

	src, err := os.ReadFile(opts.Paths.Source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %v", pipeline.ErrSourceMissing, err)
		}
		return &pipeline.IOError{Op: "read source", Path: opts.Paths.Source, Err: err}
	}

	rep := validate.Validate(string(src), validate.Options{Strict: opts.Strict})
	for _, is := range rep.Issues {
		if is.Severity == validate.SeverityError {
			a.out.Error("%s", is.Message)
		} else {
			a.out.Warning("%s", is.Message)
		}
	}

	if fixMissing && len(rep.Issues) > 0 {
		fix, err := validate.FixMissing(string(src), filepath.Base(opts.Paths.Source), rep)
		if err != nil {
			return fmt.Errorf("computing fix preview: %w", err)
		}
		if len(fix.Inserted) > 0 {
			a.out.Printf("\n%s", fix.Diff)
			a.out.Muted(fmt.Sprintf("preview only: %s was not modified", render.RelPath(opts.Paths.Root, opts.Paths.Source)))
		}
		for _, is := range fix.Skipped {
			a.out.Warning("not filled: %s through %s is longer than %d codes; check the numbering by hand",
				is.Code, is.Through, validate.MaxFillRun)
		}
	}

	if rep.Clean() {
		a.out.Success("%s", rep.Summary())
		return nil
	}
	a.out.Muted(rep.Summary())
	return &exitError{code: rep.ExitCode()}
}

// --- check ---

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Fail if the generated files differ from what the outline and state produce",
		Long: `Regenerate every artifact into a scratch directory and compare it with the
committed files. Provenance comments and sync timestamps are ignored. The
working tree is never written. Exits 2 on drift.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, _, err := a.options(cmd, "check", false)
			if err != nil {
				return err
			}

			rep, err := drift.Check(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if !rep.Drifted() {
				a.out.Success("no drift: %d generated files match the outline", rep.Checked)
				return nil
			}

			for _, m := range rep.Mismatches {
				rel := render.RelPath(opts.Paths.Root, m.Path)
				if m.Missing {
					a.out.Warning("%s: missing", rel)
					continue
				}
				a.out.Warning("%s: differs", rel)
				a.out.Printf("%s\n", m.Diff)
			}
			return rep.Err()
		},
	}
}

// --- set ---

func (a *app) setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <code> <status>",
		Short: "Set the status of one code and regenerate",
		Long: `Set the status of one outline code, then regenerate every artifact.

Statuses: pending, in-progress, completed. Aliases such as todo, start,
doing, done and finish are accepted, as is the compact form "1.2.3- start".`,
		Example: `  plansync set 1.2.3 done
  plansync set "1.2.4- start"`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, status, err := state.ParseAssignment(args)
			if err != nil {
				return err
			}
			overrides := map[string]outline.Status{code: status}
			if err := a.runGenerate(cmd.Context(), cmd, overrides, "set", false); err != nil {
				return err
			}
			a.out.Println(a.out.Icon(ux.StatusIcon(status)), code, "→", string(status))
			return nil
		},
	}
}

// --- status ---

func (a *app) statusCmd() *cobra.Command {
	var (
		next   int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show per-Step progress and the next open items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, _, err := a.options(cmd, "cli", false)
			if err != nil {
				return err
			}
			art, err := pipeline.Generate(cmd.Context(), opts)
			if err != nil {
				return err
			}
			p := pipeline.Summarize(art.Tree, next)

			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			}
			a.printProgress(p)
			return nil
		},
	}
	cmd.Flags().IntVar(&next, "next", 5, "number of open items to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func (a *app) printProgress(p pipeline.Progress) {
	a.out.Title("Plan progress")
	for _, s := range p.Steps {
		a.out.Printf("%s %s %3d/%-3d Step %s — %s\n",
			a.out.Icon(ux.StatusIcon(s.Status)), ux.ProgressBar(s.Done, s.Total, 20), s.Done, s.Total, s.Code, s.Title)
	}
	a.out.Printf("\n%d/%d items complete (%d%%), %d in progress\n", p.Done, p.Total, p.Percent(), p.InProgress)

	if len(p.Next) > 0 {
		a.out.Println()
		a.out.Title("Next up")
		for _, n := range p.Next {
			a.out.Println(a.out.Icon(ux.StatusIcon(n.Status)), n.Code, n.Title)
		}
	}
}

// --- bootstrap ---

func (a *app) bootstrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Recreate a missing outline from the generated plan",
		Long: `Recover the hand-written outline from the generated plan document when the
outline file is missing. Provenance comments and status markers are
stripped. An existing outline is never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, _, err := a.options(cmd, "cli", false)
			if err != nil {
				return err
			}
			created, err := pipeline.Bootstrap(opts.Paths)
			if err != nil {
				return err
			}
			src := render.RelPath(opts.Paths.Root, opts.Paths.Source)
			if !created {
				a.out.Muted(fmt.Sprintf("%s already exists; nothing to do", src))
				return nil
			}
			a.out.Success("recreated %s from %s", src, render.RelPath(opts.Paths.Root, opts.Paths.Plan))
			return nil
		},
	}
}

// --- watch ---

func (a *app) watchCmd() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate whenever the outline or state file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, cleanup, err := a.options(cmd, "watch", true)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return watch.Watch(ctx, watch.Options{
				Run:      opts,
				Debounce: debounce,
				OnSync: func(res *pipeline.Result, err error) {
					switch {
					case err != nil:
						a.out.Error("%v", err)
					case len(res.Written) > 0:
						a.out.Success("regenerated %d file(s) at %s", len(res.Written), time.Now().Format(time.TimeOnly))
					}
				},
			})
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before regenerating")
	return cmd
}

// --- journal ---

func (a *app) openJournal(cmd *cobra.Command) (*journal.Store, error) {
	cfg, root, err := a.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if !cfg.Journal.Enabled {
		return nil, errors.New("the sync journal is disabled (journal.enabled in plansync.yaml)")
	}
	return journal.New(journal.Config{Path: cfg.Paths(root).Journal})
}

func (a *app) historyCmd() *cobra.Command {
	var (
		limit int
		code  string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sync runs, or the transitions of one code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			j, err := a.openJournal(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = j.Close() }()

			if code != "" {
				rows, err := j.CodeHistory(cmd.Context(), code, limit)
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					a.out.Muted("no recorded transitions for " + code)
					return nil
				}
				for _, r := range rows {
					from := r.From
					if from == "" {
						from = "-"
					}
					a.out.Printf("%s  %-11s → %-11s  %-10s  %s\n", r.CreatedAt, from, r.To, r.Cause, shortID(r.RunID))
				}
				return nil
			}

			runs, err := j.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				a.out.Muted("no sync runs recorded yet")
				return nil
			}
			for _, r := range runs {
				a.out.Printf("%s  %s  %-6s %3d/%-3d done  %d change(s)  %d pruned\n",
					shortID(r.ID), r.CreatedAt, r.Trigger, r.Completed, r.Total, r.TransitionCount, r.PrunedCount)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows")
	cmd.Flags().StringVar(&code, "code", "", "show the status transitions of this code")
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over outline codes and titles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := a.openJournal(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = j.Close() }()

			results, err := j.Search(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				a.out.Muted("no matches")
				return nil
			}
			for _, r := range results {
				a.out.Println(a.out.Icon(ux.StatusIcon(outline.Status(r.Status))), r.Code, r.Title)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// --- serve ---

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Long: `Start the Model Context Protocol server on stdin/stdout so AI coding tools
can read progress and record status changes. Logs go to stderr.

Add to your tool's MCP config:

  {
    "mcpServers": {
      "plansync": { "command": "plansync", "args": ["serve"] }
    }
  }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, root, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			s, cleanup, err := server.New(server.Options{Root: root, Logger: a.log})
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			defer cleanup()

			a.log.Info("mcp server starting", "root", root, "version", server.Version)
			return mcpserver.ServeStdio(s)
		},
	}
}

// --- init / version ---

func (a *app) initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented plansync.yaml in the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting working directory: %w", err)
			}
			path, err := config.Init(wd, force)
			if err != nil {
				return err
			}
			a.out.Success("wrote %s", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing plansync.yaml")
	return cmd
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(a.stdout, "plansync %s\n", server.Version)
		},
	}
}
