// Package prompts implements MCP prompt handlers.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ReviewPrompt handles the spec-review MCP prompt.
// It asks the AI to validate specs and fix what the validators report.
type ReviewPrompt struct{}

// NewReviewPrompt creates a ReviewPrompt.
func NewReviewPrompt() *ReviewPrompt {
	return &ReviewPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ReviewPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("spec-review",
		mcp.WithPromptDescription(
			"Review specs for compliance. Runs spec_validate, explains every finding, "+
				"and fixes them one spec at a time.",
		),
		mcp.WithArgument("spec",
			mcp.ArgumentDescription("Spec to review (path, name, or numeric prefix). Reviews every spec when omitted."),
		),
		mcp.WithArgument("strict",
			mcp.ArgumentDescription("'true' to treat missing required sections as errors"),
		),
	)
}

// Handle processes the spec-review prompt request.
func (p *ReviewPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	spec := req.Params.Arguments["spec"]
	strict := req.Params.Arguments["strict"] == "true"

	target := "all specs in this project"
	call := "`spec_validate` with detail_level='full'"
	if spec != "" {
		target = fmt.Sprintf("the spec '%s'", spec)
		call = fmt.Sprintf("`spec_validate` with spec='%s' and detail_level='full'", spec)
	}
	if strict {
		call += " and strict=true"
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Review %s", target),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Please review %s for compliance.\n\n"+
						"1. Run %s\n"+
						"2. Summarize the result: which specs fail and why\n"+
						"3. Fix errors first, then warnings. Before splitting an oversized sub-spec, "+
						"run `spec_tokens` to see how large each document is\n"+
						"4. Do not invent content for empty sections; ask me what belongs there\n"+
						"5. Run spec_validate again and confirm the specs pass",
					target, call,
				)),
			},
		},
	}, nil
}
