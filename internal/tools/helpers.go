// Package tools implements the MCP tool handlers for plansync.
//
// Each tool is a struct that receives its dependencies through its
// constructor and exposes Definition() and Handle(), the shape mcp-go's
// AddTool expects. One file per tool.
package tools

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/HendryAvila/plansync/internal/config"
	"github.com/HendryAvila/plansync/internal/journal"
	"github.com/HendryAvila/plansync/internal/pipeline"
	"github.com/HendryAvila/plansync/internal/render"
	"github.com/HendryAvila/plansync/internal/validate"
	"github.com/mark3labs/mcp-go/mcp"
)

// Workspace is the project every tool call operates on.
type Workspace struct {
	// Root is the project root. Empty means: walk up from the working
	// directory on every call.
	Root string

	// Journal is optional; history and search report an error without it.
	Journal *journal.Store
	Logger  *slog.Logger
}

// findProjectRoot walks up from the current working directory looking for
// plansync.yaml or plan/plan_source.md. If none is found, returns cwd.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return config.FindProjectRoot(dir), nil
}

func (w *Workspace) root() (string, error) {
	if w.Root != "" {
		return w.Root, nil
	}
	return findProjectRoot()
}

// options loads the project config and builds run options for trigger.
func (w *Workspace) options(trigger string) (pipeline.Options, error) {
	root, err := w.root()
	if err != nil {
		return pipeline.Options{}, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return pipeline.Options{}, fmt.Errorf("loading config: %w", err)
	}

	opts := pipeline.OptionsFromConfig(cfg, root)
	opts.Trigger = trigger
	opts.Logger = w.Logger
	if w.Journal != nil {
		opts.Recorder = w.Journal
	}
	return opts, nil
}

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// runError turns the errors a user can fix into tool errors. Anything
// else is returned as-is so mcp-go reports it as an internal failure.
func runError(err error) (*mcp.CallToolResult, error) {
	var serr *pipeline.StructuralError
	if errors.As(err, &serr) {
		return mcp.NewToolResultError("The outline has structural errors; nothing was written.\n\n" +
			formatIssues(serr.Report)), nil
	}
	if errors.Is(err, pipeline.ErrSourceMissing) {
		return mcp.NewToolResultError(fmt.Sprintf("%v. Create the outline or run `plansync bootstrap`.", err)), nil
	}
	if errors.Is(err, pipeline.ErrUnknownCode) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, err
}

// formatIssues renders a validation report as a markdown list.
func formatIssues(rep *validate.Report) string {
	if rep == nil || rep.Clean() {
		return "No issues found."
	}
	var b strings.Builder
	for _, is := range rep.Issues {
		fmt.Fprintf(&b, "- **%s** %s: %s\n", is.Severity, is.Kind, is.Message)
	}
	fmt.Fprintf(&b, "\n%s\n", rep.Summary())
	return b.String()
}

// relTo shortens an absolute path for display.
func relTo(root, path string) string {
	return render.RelPath(root, path)
}
