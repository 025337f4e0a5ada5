package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// NewSpecPrompt handles the spec-new MCP prompt.
// It guides the AI through writing a spec that passes validation from
// the start.
type NewSpecPrompt struct{}

// NewNewSpecPrompt creates a NewSpecPrompt.
func NewNewSpecPrompt() *NewSpecPrompt {
	return &NewSpecPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *NewSpecPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("spec-new",
		mcp.WithPromptDescription(
			"Write a new spec that follows the project's rules: "+
				"a titled primary document with the required sections, "+
				"and uppercase sub-specs linked from it.",
		),
		mcp.WithArgument("name",
			mcp.ArgumentDescription("Directory name for the spec, e.g. '004-notifications'"),
		),
	)
}

// Handle processes the spec-new prompt request.
func (p *NewSpecPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := strings.TrimSpace(req.Params.Arguments["name"])
	if name == "" {
		name = "the next numbered directory (check `spec_list`)"
	} else {
		name = fmt.Sprintf("'%s'", name)
	}

	return &mcp.GetPromptResult{
		Description: "Create a new spec",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to write a new spec in %s.\n\n"+
						"Please:\n"+
						"1. Read `specgate://config` to learn the required sections and token thresholds\n"+
						"2. Ask me what the spec is about, then write the primary document with frontmatter "+
						"(status: draft, created: today's date), a '# Title' line, and every required section\n"+
						"3. Move long material into uppercase sub-specs such as DESIGN.md and link each one "+
						"from the primary document\n"+
						"4. Run `spec_validate` on the new spec and fix anything it reports",
					name,
				)),
			},
		},
	}, nil
}
