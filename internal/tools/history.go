package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const journalDisabled = "The sync journal is disabled. Enable `journal.enabled` in plansync.yaml."

// HistoryTool handles the plan_history MCP tool.
type HistoryTool struct {
	ws *Workspace
}

// NewHistoryTool creates a HistoryTool.
func NewHistoryTool(ws *Workspace) *HistoryTool {
	return &HistoryTool{ws: ws}
}

// Definition returns the MCP tool definition for registration.
func (t *HistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("plan_history",
		mcp.WithDescription(
			"List recent sync runs from the journal, newest first. With `code`, list the "+
				"status transitions of that single code instead.",
		),
		mcp.WithString("code",
			mcp.Description("Restrict to the transitions of one outline code"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max rows (default: 10)"),
		),
	)
}

// Handle processes the plan_history tool call.
func (t *HistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.ws.Journal == nil {
		return mcp.NewToolResultError(journalDisabled), nil
	}
	limit := intArg(req, "limit", 10)

	if code := strings.TrimSpace(req.GetString("code", "")); code != "" {
		rows, err := t.ws.Journal.CodeHistory(ctx, code, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("history failed: %v", err)), nil
		}
		if len(rows) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No recorded transitions for %s.", code)), nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "# History of %s\n\n| When | From | To | Cause | Run |\n|------|------|----|-------|-----|\n", code)
		for _, r := range rows {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | `%s` |\n", r.CreatedAt, orDash(r.From), r.To, r.Cause, shortID(r.RunID))
		}
		return mcp.NewToolResultText(b.String()), nil
	}

	runs, err := t.ws.Journal.History(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history failed: %v", err)), nil
	}
	if len(runs) == 0 {
		return mcp.NewToolResultText("No sync runs recorded yet."), nil
	}

	var b strings.Builder
	b.WriteString("# Sync History\n\n| When | Trigger | Done | Total | Changes | Pruned | Run |\n")
	b.WriteString("|------|---------|------|-------|---------|--------|-----|\n")
	for _, r := range runs {
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %d | %d | `%s` |\n",
			r.CreatedAt, r.Trigger, r.Completed, r.Total, r.TransitionCount, r.PrunedCount, shortID(r.ID))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
