package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/plansync/internal/outline"
	"github.com/HendryAvila/plansync/internal/pipeline"
	"github.com/HendryAvila/plansync/internal/state"
	"github.com/mark3labs/mcp-go/mcp"
)

// SetStatusTool handles the plan_set_status MCP tool.
type SetStatusTool struct {
	ws *Workspace
}

// NewSetStatusTool creates a SetStatusTool.
func NewSetStatusTool(ws *Workspace) *SetStatusTool {
	return &SetStatusTool{ws: ws}
}

// Definition returns the MCP tool definition for registration.
func (t *SetStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("plan_set_status",
		mcp.WithDescription(
			"Set the status of one outline code and regenerate every artifact. Parents are "+
				"recomputed: a Topic or Step completes when all its children complete. "+
				"Accepted statuses include todo, doing, start, done and finish.",
		),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("Dotted outline code, e.g. 1.2.3"),
		),
		mcp.WithString("status",
			mcp.Required(),
			mcp.Description("pending, in-progress or completed (aliases: todo, doing, start, done, finish)"),
		),
	)
}

// Handle processes the plan_set_status tool call.
func (t *SetStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code := strings.TrimSpace(req.GetString("code", ""))
	if code == "" {
		return mcp.NewToolResultError("'code' is required"), nil
	}
	if !outline.IsWellFormed(code) {
		return mcp.NewToolResultError(fmt.Sprintf("%q is not a dotted numeric code", code)), nil
	}
	status, err := state.ParseStatus(req.GetString("status", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts, err := t.ws.options("mcp")
	if err != nil {
		return nil, err
	}
	opts.Overrides = map[string]outline.Status{code: status}

	res, err := pipeline.Run(ctx, opts)
	if err != nil {
		return runError(err)
	}

	node := res.Tree.Find(code)
	var b strings.Builder
	fmt.Fprintf(&b, "# Status Updated\n\n**%s** is now `%s`.\n", node.DisplayTitle(), node.Status)

	var cascaded []string
	for _, c := range res.Changes {
		cascaded = append(cascaded, fmt.Sprintf("%s → %s", c.Code, c.To))
	}
	if len(cascaded) > 0 {
		fmt.Fprintf(&b, "\nPropagated: %s\n", strings.Join(cascaded, ", "))
	}
	p := pipeline.Summarize(res.Tree, 0)
	fmt.Fprintf(&b, "\nOverall: %d/%d items complete (%d%%).\n", p.Done, p.Total, p.Percent())
	return mcp.NewToolResultText(b.String()), nil
}
