package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// SearchTool handles the plan_search MCP tool.
type SearchTool struct {
	ws *Workspace
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(ws *Workspace) *SearchTool {
	return &SearchTool{ws: ws}
}

// Definition returns the MCP tool definition for plan_search.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("plan_search",
		mcp.WithDescription(
			"Full-text search over outline codes and titles as of the latest sync. "+
				"Use it to find the code of an item before setting its status.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query: keywords or a code"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 10)"),
		),
	)
}

// Handle processes the plan_search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	if t.ws.Journal == nil {
		return mcp.NewToolResultError(journalDisabled), nil
	}

	results, err := t.ws.Journal.Search(ctx, query, intArg(req, "limit", 10))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No outline nodes match your query."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d nodes:\n\n", len(results))
	for _, r := range results {
		fmt.Fprintf(&b, "- `%s` %s (%s, %s)\n", r.Code, r.Title, r.Kind, r.Status)
	}
	return mcp.NewToolResultText(b.String()), nil
}
