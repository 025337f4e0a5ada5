package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specgate/internal/report"
)

// ListTool handles the spec_list MCP tool.
type ListTool struct {
	open Opener
}

// NewListTool creates a ListTool.
func NewListTool(open Opener) *ListTool {
	return &ListTool{open: open}
}

// Definition returns the MCP tool definition for spec_list.
func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("spec_list",
		mcp.WithDescription("List the specs of the current project with their titles, status and creation date."),
		mcp.WithString("status",
			mcp.Description("Only list specs whose frontmatter status matches (case-insensitive), e.g. 'draft'"),
		),
		mcp.WithString("detail_level",
			mcp.Description("summary: paths and titles only. standard (default): adds status and date. full: adds file paths."),
			mcp.Enum(report.DetailLevelValues()...),
		),
	)
}

// Handle processes the spec_list tool call.
func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	w, err := t.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening workspace: %w", err)
	}

	list, err := w.List(ctx, req.GetString("status", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing specs: %v", err)), nil
	}
	return mcp.NewToolResultText(report.SpecList(list, req.GetString("detail_level", ""))), nil
}
