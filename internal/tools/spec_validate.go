package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specgate/internal/logger"
	"github.com/HendryAvila/specgate/internal/report"
	"github.com/HendryAvila/specgate/internal/tokens"
	"github.com/HendryAvila/specgate/internal/workspace"
)

// ValidateTool handles the spec_validate MCP tool.
type ValidateTool struct {
	open     Opener
	recorder workspace.Recorder
	log      *slog.Logger
}

// NewValidateTool creates a ValidateTool.
func NewValidateTool(open Opener) *ValidateTool {
	return &ValidateTool{open: open, log: logger.ForComponent("tools")}
}

// SetRecorder enables history recording. A nil recorder disables it.
func (t *ValidateTool) SetRecorder(rec workspace.Recorder) {
	t.recorder = rec
}

// Definition returns the MCP tool definition for spec_validate.
func (t *ValidateTool) Definition() mcp.Tool {
	return mcp.NewTool("spec_validate",
		mcp.WithDescription(
			"Validate specs against the project's compliance rules: title and required sections, "+
				"empty or duplicate headings, sub-spec naming, token budget, orphaned sub-specs and "+
				"broken cross-references. Validates every spec when 'spec' is omitted.",
		),
		mcp.WithString("spec",
			mcp.Description("Spec to validate: path (e.g. 'auth/001-login'), directory name, or numeric prefix such as '001'"),
		),
		mcp.WithBoolean("strict",
			mcp.Description("Treat missing required sections as errors instead of warnings. Defaults to the project config."),
		),
		mcp.WithBoolean("check_cross_references",
			mcp.Description("Check links between sub-specs. Defaults to the project config."),
		),
		mcp.WithString("detail_level",
			mcp.Description("summary: one line per spec. standard (default): every finding. full: findings with fix suggestions."),
			mcp.Enum(report.DetailLevelValues()...),
		),
	)
}

// Handle processes the spec_validate tool call.
func (t *ValidateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	w, err := t.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening workspace: %w", err)
	}

	var refs []string
	if ref := req.GetString("spec", ""); ref != "" {
		refs = []string{ref}
	}
	opts := workspace.ValidateOptions{
		Strict:               optionalBool(req, "strict"),
		CheckCrossReferences: optionalBool(req, "check_cross_references"),
	}

	rep, err := w.Validate(ctx, refs, opts)
	if err != nil {
		return refError(err)
	}

	if _, err := w.Record(t.recorder, rep.Specs...); err != nil {
		// A recording failure does not change the validation result.
		t.log.Warn("history disabled for this run", "error", err)
	}

	out := report.Markdown(rep, req.GetString("detail_level", ""))
	return mcp.NewToolResultText(out + tokens.Footer(tokens.Chars(out))), nil
}
