package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/plansync/internal/pipeline"
	"github.com/mark3labs/mcp-go/mcp"
)

// SyncTool handles the plan_sync MCP tool: regenerate every artifact.
type SyncTool struct {
	ws *Workspace
}

// NewSyncTool creates a SyncTool.
func NewSyncTool(ws *Workspace) *SyncTool {
	return &SyncTool{ws: ws}
}

// Definition returns the MCP tool definition for registration.
func (t *SyncTool) Definition() mcp.Tool {
	return mcp.NewTool("plan_sync",
		mcp.WithDescription(
			"Regenerate the plan document, todo list, manifest and state file from the "+
				"hand-written outline. Validation errors abort the run and nothing is written. "+
				"Unchanged files are left untouched.",
		),
		mcp.WithBoolean("strict",
			mcp.Description("Treat missing-sibling warnings as errors (default: value from plansync.yaml)"),
		),
	)
}

// Handle processes the plan_sync tool call.
func (t *SyncTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts, err := t.ws.options("mcp")
	if err != nil {
		return nil, err
	}
	opts.Strict = boolArg(req, "strict", opts.Strict)

	res, err := pipeline.Run(ctx, opts)
	if err != nil {
		return runError(err)
	}

	var b strings.Builder
	b.WriteString("# Plan Synced\n\n")
	if len(res.Written) == 0 {
		b.WriteString("All artifacts were already up to date.\n")
	} else {
		b.WriteString("Written:\n")
		for _, p := range res.Written {
			fmt.Fprintf(&b, "- `%s`\n", relTo(opts.Paths.Root, p))
		}
	}

	if len(res.Transitions) > 0 {
		b.WriteString("\n## Status changes\n\n| Code | From | To | Cause |\n|------|------|----|-------|\n")
		for _, tr := range res.Transitions {
			from := tr.From
			if from == "" {
				from = "—"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", tr.Code, from, tr.To, tr.Cause)
		}
	}
	if len(res.Merge.Pruned) > 0 {
		fmt.Fprintf(&b, "\nPruned stale codes: %s\n", strings.Join(res.Merge.Pruned, ", "))
	}
	if w := res.Report.Warnings(); len(w) > 0 {
		fmt.Fprintf(&b, "\n## Warnings\n\n%s", formatIssues(res.Report))
	}
	return mcp.NewToolResultText(b.String()), nil
}
