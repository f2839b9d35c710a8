package prompts

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
)

// NextPrompt handles the plan-next MCP prompt.
// It guides the AI to pick the next item and mark it started.
type NextPrompt struct{}

// NewNextPrompt creates a NextPrompt.
func NewNextPrompt() *NextPrompt {
	return &NextPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *NextPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("plan-next",
		mcp.WithPromptDescription(
			"Pick what to work on next from the plan and mark it in progress.",
		),
		mcp.WithArgument("count",
			mcp.ArgumentDescription("How many candidate items to consider. Default: 5"),
		),
	)
}

// Handle processes the plan-next prompt request.
func (p *NextPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	count := 5
	if args := req.Params.Arguments; args != nil {
		if n, err := strconv.Atoi(args["count"]); err == nil && n > 0 {
			count = n
		}
	}

	return &mcp.GetPromptResult{
		Description: "Next Plan Item",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Please run `plan_status` with `next` set to %d.\n\n"+
						"Then:\n"+
						"1. If an item is already in progress, propose finishing it first\n"+
						"2. Otherwise recommend one pending item from the list and explain briefly why\n"+
						"3. Once I confirm, call `plan_set_status` with that code and status `start`\n"+
						"4. When I tell you the work is done, call `plan_set_status` with status `done`",
					count,
				)),
			},
		},
	}, nil
}
