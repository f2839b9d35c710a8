// Package prompts implements MCP prompt handlers for plansync.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the plan-status MCP prompt.
// It instructs the AI to read and present the current plan progress.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("plan-status",
		mcp.WithPromptDescription(
			"Check the progress of the plan: per-Step completion, items in flight, "+
				"and whether the generated files are in sync with the outline.",
		),
	)
}

// Handle processes the plan-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Plan Status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `plan_status` to check the progress of my plan, then `plan_check_drift`.\n\n" +
						"Then:\n" +
						"1. Show the per-Step progress in a compact table\n" +
						"2. List the items currently in progress\n" +
						"3. If drift was reported, say which files differ and suggest running `plan_sync`\n" +
						"4. If `plan_status` reported validation problems, list them with their line numbers",
				),
			},
		},
	}, nil
}
