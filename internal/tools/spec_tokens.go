package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specgate/internal/report"
)

// TokensTool handles the spec_tokens MCP tool.
type TokensTool struct {
	open Opener
}

// NewTokensTool creates a TokensTool.
func NewTokensTool(open Opener) *TokensTool {
	return &TokensTool{open: open}
}

// Definition returns the MCP tool definition for spec_tokens.
func (t *TokensTool) Definition() mcp.Tool {
	return mcp.NewTool("spec_tokens",
		mcp.WithDescription(
			"Estimate the token size of a spec's primary document and each sub-spec, "+
				"classified against the project's token budget. Use it before loading a large spec.",
		),
		mcp.WithString("spec",
			mcp.Required(),
			mcp.Description("Spec path, directory name, or numeric prefix"),
		),
	)
}

// Handle processes the spec_tokens tool call.
func (t *TokensTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := req.GetString("spec", "")
	if ref == "" {
		return mcp.NewToolResultError("'spec' is required"), nil
	}

	w, err := t.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening workspace: %w", err)
	}
	tr, err := w.Tokens(ctx, ref)
	if err != nil {
		return refError(err)
	}
	return mcp.NewToolResultText(report.Tokens(tr)), nil
}
