package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/plansync/internal/pipeline"
	"github.com/mark3labs/mcp-go/mcp"
)

// StatusTool handles the plan_status MCP tool. It computes progress in
// memory and writes nothing.
type StatusTool struct {
	ws *Workspace
}

// NewStatusTool creates a StatusTool.
func NewStatusTool(ws *Workspace) *StatusTool {
	return &StatusTool{ws: ws}
}

// Definition returns the MCP tool definition for registration.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("plan_status",
		mcp.WithDescription(
			"Show per-Step progress of the plan and the next open items to work on. "+
				"Read-only: statuses are computed but nothing is written.",
		),
		mcp.WithNumber("next",
			mcp.Description("How many open items to list (default: 5)"),
		),
	)
}

// Handle processes the plan_status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts, err := t.ws.options("mcp")
	if err != nil {
		return nil, err
	}

	a, err := pipeline.Generate(ctx, opts)
	if err != nil {
		return runError(err)
	}
	return mcp.NewToolResultText(FormatProgress(pipeline.Summarize(a.Tree, intArg(req, "next", 5)))), nil
}

// FormatProgress renders a progress summary as markdown. The prompts and
// resources share it.
func FormatProgress(p pipeline.Progress) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Plan Progress\n\n**Overall:** %d/%d items complete (%d%%), %d in progress\n\n",
		p.Done, p.Total, p.Percent(), p.InProgress)

	b.WriteString("| Step | Status | Done | In progress | Total |\n")
	b.WriteString("|------|--------|------|-------------|-------|\n")
	for _, s := range p.Steps {
		title := strings.TrimSpace(s.Marker + " Step " + s.Code + " — " + s.Title)
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %d |\n", title, s.Status, s.Done, s.InProgress, s.Total)
	}

	if len(p.Next) > 0 {
		b.WriteString("\n## Next up\n\n")
		for _, n := range p.Next {
			fmt.Fprintf(&b, "- `%s` %s (%s)\n", n.Code, n.Title, n.Status)
		}
	}
	return b.String()
}
