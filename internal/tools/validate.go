package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/HendryAvila/plansync/internal/pipeline"
	"github.com/HendryAvila/plansync/internal/validate"
	"github.com/mark3labs/mcp-go/mcp"
)

// ValidateTool handles the plan_validate MCP tool. It only reads.
type ValidateTool struct {
	ws *Workspace
}

// NewValidateTool creates a ValidateTool.
func NewValidateTool(ws *Workspace) *ValidateTool {
	return &ValidateTool{ws: ws}
}

// Definition returns the MCP tool definition for registration.
func (t *ValidateTool) Definition() mcp.Tool {
	return mcp.NewTool("plan_validate",
		mcp.WithDescription(
			"Check the outline for duplicate, malformed and orphaned codes and for gaps in "+
				"sibling numbering. With fix_missing, also preview (as a unified diff) the "+
				"placeholder lines that would fill each gap. The outline is never modified.",
		),
		mcp.WithBoolean("strict",
			mcp.Description("Treat missing-sibling warnings as errors"),
		),
		mcp.WithBoolean("fix_missing",
			mcp.Description("Include a diff previewing placeholder items for every gap"),
		),
	)
}

// Handle processes the plan_validate tool call.
func (t *ValidateTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts, err := t.ws.options("mcp")
	if err != nil {
		return nil, err
	}

	src, err := os.ReadFile(opts.Paths.Source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return runError(fmt.Errorf("%s: %w", relTo(opts.Paths.Root, opts.Paths.Source), pipeline.ErrSourceMissing))
		}
		return nil, fmt.Errorf("reading outline: %w", err)
	}

	rep := validate.Validate(string(src), validate.Options{Strict: boolArg(req, "strict", opts.Strict)})

	var b strings.Builder
	b.WriteString("# Outline Validation\n\n")
	b.WriteString(formatIssues(rep))

	if boolArg(req, "fix_missing", false) && len(rep.Issues) > 0 {
		fix, err := validate.FixMissing(string(src), filepath.Base(opts.Paths.Source), rep)
		if err != nil {
			return nil, fmt.Errorf("computing fix preview: %w", err)
		}
		if len(fix.Inserted) > 0 {
			fmt.Fprintf(&b, "\n## Fix preview (%s)\n\n```diff\n%s```\n\nApply these lines by hand; the outline was not changed.\n",
				strings.Join(fix.Inserted, ", "), fix.Diff)
		}
		for _, is := range fix.Skipped {
			fmt.Fprintf(&b, "\nNot filled: `%s` through `%s` is longer than %d codes; check the numbering by hand.\n",
				is.Code, is.Through, validate.MaxFillRun)
		}
	}

	if rep.HasErrors() {
		return mcp.NewToolResultError(b.String()), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}
