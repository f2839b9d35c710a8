package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/plansync/internal/drift"
	"github.com/mark3labs/mcp-go/mcp"
)

// DriftTool handles the plan_check_drift MCP tool.
type DriftTool struct {
	ws *Workspace
}

// NewDriftTool creates a DriftTool.
func NewDriftTool(ws *Workspace) *DriftTool {
	return &DriftTool{ws: ws}
}

// Definition returns the MCP tool definition for registration.
func (t *DriftTool) Definition() mcp.Tool {
	return mcp.NewTool("plan_check_drift",
		mcp.WithDescription(
			"Verify that the committed generated files are exactly what the outline and state "+
				"produce. Reports every hand-edited or stale artifact with a diff. Writes nothing.",
		),
	)
}

// Handle processes the plan_check_drift tool call.
func (t *DriftTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts, err := t.ws.options("mcp")
	if err != nil {
		return nil, err
	}
	opts.Recorder = nil

	rep, err := drift.Check(ctx, opts)
	if err != nil {
		return runError(err)
	}

	if !rep.Drifted() {
		return mcp.NewToolResultText(fmt.Sprintf("# No Drift\n\nAll %d generated files match the outline and state.", rep.Checked)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Drift Detected\n\n%d of %d generated files differ. Run plan_sync and commit the result.\n",
		len(rep.Mismatches), rep.Checked)
	for _, m := range rep.Mismatches {
		fmt.Fprintf(&b, "\n## %s (`%s`)\n\n", m.Name, relTo(opts.Paths.Root, m.Path))
		if m.Missing {
			b.WriteString("File is missing.\n")
			continue
		}
		fmt.Fprintf(&b, "```diff\n%s```\n", m.Diff)
	}
	return mcp.NewToolResultError(b.String()), nil
}
