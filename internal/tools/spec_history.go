package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specgate/internal/history"
	"github.com/HendryAvila/specgate/internal/report"
)

// HistoryTool handles the spec_history MCP tool.
type HistoryTool struct {
	open  Opener
	store *history.Store
	now   func() time.Time
}

// NewHistoryTool creates a HistoryTool.
func NewHistoryTool(open Opener, store *history.Store) *HistoryTool {
	return &HistoryTool{open: open, store: store, now: time.Now}
}

// Definition returns the MCP tool definition for spec_history.
func (t *HistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("spec_history",
		mcp.WithDescription(
			"Look back at recorded spec_validate runs. With 'query', full-text search past findings "+
				"(e.g. 'broken reference'). Without it, list the latest runs and pass-rate statistics.",
		),
		mcp.WithString("query",
			mcp.Description("Search terms matched against recorded issue messages and suggestions"),
		),
		mcp.WithString("spec",
			mcp.Description("Restrict to one spec (path, name, or numeric prefix)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 10, max: 50)"),
		),
		mcp.WithString("detail_level",
			mcp.Description("summary: one line per issue. standard (default): adds validator and time. full: adds suggestions."),
			mcp.Enum(report.DetailLevelValues()...),
		),
	)
}

// Handle processes the spec_history tool call.
func (t *HistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	w, err := t.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening workspace: %w", err)
	}

	specPath := ""
	if ref := req.GetString("spec", ""); ref != "" {
		// Specs that no longer exist keep their history; fall back to
		// the raw reference.
		specPath = ref
		if s, err := w.Find(ctx, ref); err == nil {
			specPath = s.Path
		}
	}
	limit := intArg(req, "limit", 10)
	now := t.now()

	if query := req.GetString("query", ""); query != "" {
		issues, err := t.store.Search(query, history.SearchOptions{
			Project:  w.Project(),
			SpecPath: specPath,
			Limit:    limit,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return mcp.NewToolResultText(report.Issues(issues, now, req.GetString("detail_level", ""))), nil
	}

	runs, err := t.store.Recent(w.Project(), specPath, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading runs failed: %v", err)), nil
	}
	stats, err := t.store.Stats(w.Project())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading stats failed: %v", err)), nil
	}
	return mcp.NewToolResultText(report.Runs(runs, now) + "\n" + report.Stats(stats)), nil
}
