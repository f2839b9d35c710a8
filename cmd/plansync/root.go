package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/HendryAvila/plansync/internal/config"
	"github.com/HendryAvila/plansync/internal/journal"
	"github.com/HendryAvila/plansync/internal/pipeline"
	"github.com/HendryAvila/plansync/internal/ux"
	"github.com/spf13/cobra"
)

// app holds the state shared by every command of one invocation.
type app struct {
	stdout, stderr io.Writer

	configPath  string
	source      string
	state       string
	outPlan     string
	outTodoMD   string
	outTodoJSON string
	strict      bool
	verbose     bool
	quiet       bool

	out *ux.Printer
	log *slog.Logger
}

// execute runs the command line and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(context.Background())
	if err != nil && !silent(err) {
		ux.NewPrinter(stderr, false).Error("%v", err)
	}
	return exitCode(err)
}

func (a *app) rootCmd() *cobra.Command {
	var (
		validateOnly bool
		fixMissing   bool
		printPlan    bool
	)

	root := &cobra.Command{
		Use:   "plansync",
		Short: "Regenerate plan progress documents from a hand-written outline",
		Long: `plansync reads a hierarchical plan outline (Steps, Topics and Items
addressed by dotted codes such as 1.2.3) and a small status file, then
regenerates the plan document, a flattened todo list and a JSON manifest.
Completion rolls up: a Topic completes when all its items do.

Run without a subcommand to regenerate everything.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.setup()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if validateOnly || fixMissing {
				return a.runValidate(cmd, fixMissing)
			}
			return a.runGenerate(cmd.Context(), cmd, nil, "cli", printPlan)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to plansync.yaml (default: found by walking up from the working directory)")
	pf.StringVar(&a.source, "source", "", "outline file (overrides config)")
	pf.StringVar(&a.state, "state", "", "state file (overrides config)")
	pf.StringVar(&a.outPlan, "out-plan", "", "generated plan document (overrides config)")
	pf.StringVar(&a.outTodoMD, "out-todo-md", "", "generated todo list (overrides config)")
	pf.StringVar(&a.outTodoJSON, "out-todo-json", "", "generated manifest (overrides config)")
	pf.BoolVar(&a.strict, "strict", false, "treat missing sibling codes as errors")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "print errors only")

	root.Flags().BoolVar(&validateOnly, "validate", false, "validate the outline and exit without writing")
	root.Flags().BoolVar(&fixMissing, "fix-missing", false, "with --validate, preview placeholder lines for missing codes")
	root.Flags().BoolVar(&printPlan, "print", false, "also print the generated plan to stdout")

	root.AddCommand(
		a.validateCmd(),
		a.checkCmd(),
		a.setCmd(),
		a.statusCmd(),
		a.bootstrapCmd(),
		a.watchCmd(),
		a.historyCmd(),
		a.searchCmd(),
		a.serveCmd(),
		a.initCmd(),
		a.versionCmd(),
	)
	return root
}

// setup builds the printer and logger once flags are parsed.
func (a *app) setup() {
	a.out = ux.NewPrinter(a.stdout, a.quiet)
	a.log = newLogger(a.stderr, a.verbose, a.quiet)
}

// newLogger returns a text logger on w. --quiet discards everything;
// --verbose or PLANSYNC_LOG_LEVEL=debug enables debug output.
func newLogger(w io.Writer, verbose, quiet bool) *slog.Logger {
	if quiet {
		return slog.New(slog.DiscardHandler)
	}
	level := slog.LevelInfo
	if v, ok := os.LookupEnv("PLANSYNC_LOG_LEVEL"); ok {
		if err := level.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
			level = slog.LevelInfo
		}
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the config file and applies command-line overrides.
// It returns the config and the project root paths resolve against.
func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	var (
		cfg  *config.Config
		root string
		err  error
	)
	if a.configPath != "" {
		abs, err := filepath.Abs(a.configPath)
		if err != nil {
			return nil, "", fmt.Errorf("resolving config path: %w", err)
		}
		if cfg, err = config.LoadFile(abs); err != nil {
			return nil, "", err
		}
		root = filepath.Dir(abs)
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("getting working directory: %w", err)
		}
		root = config.FindProjectRoot(wd)
		if cfg, err = config.Load(root); err != nil {
			return nil, "", err
		}
	}

	overrides := []struct {
		flag string
		val  string
		dst  *string
	}{
		{"source", a.source, &cfg.Source},
		{"state", a.state, &cfg.State},
		{"out-plan", a.outPlan, &cfg.OutPlan},
		{"out-todo-md", a.outTodoMD, &cfg.OutTodoMD},
		{"out-todo-json", a.outTodoJSON, &cfg.OutTodoJSON},
	}
	for _, o := range overrides {
		if !cmd.Flags().Changed(o.flag) {
			continue
		}
		// Flag paths are relative to the working directory, not the root.
		if *o.dst, err = filepath.Abs(o.val); err != nil {
			return nil, "", fmt.Errorf("resolving --%s: %w", o.flag, err)
		}
	}
	if cmd.Flags().Changed("strict") {
		cfg.Strict = a.strict
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, root, nil
}

// options builds pipeline options for a command. The returned cleanup
// closes the journal, if one was opened.
func (a *app) options(cmd *cobra.Command, trigger string, withJournal bool) (pipeline.Options, func(), error) {
	cfg, root, err := a.loadConfig(cmd)
	if err != nil {
		return pipeline.Options{}, noop, err
	}

	opts := pipeline.OptionsFromConfig(cfg, root)
	opts.Trigger = trigger
	opts.Logger = a.log

	if !withJournal || !cfg.Journal.Enabled {
		return opts, noop, nil
	}
	j, err := journal.New(journal.Config{Path: opts.Paths.Journal})
	if err != nil {
		a.log.Warn("journal disabled", "error", err)
		return opts, noop, nil
	}
	opts.Recorder = j
	return opts, func() { _ = j.Close() }, nil
}

func noop() {}
