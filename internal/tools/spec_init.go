package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specgate/internal/config"
)

// InitTool handles the spec_init MCP tool.
// It writes .specgate/config.yaml with the defaults.
type InitTool struct {
	store config.Store
	root  func() (string, error)
}

// NewInitTool creates an InitTool that initializes the directory
// returned by root.
func NewInitTool(store config.Store, root func() (string, error)) *InitTool {
	return &InitTool{store: store, root: root}
}

// Definition returns the MCP tool definition for registration.
func (t *InitTool) Definition() mcp.Tool {
	return mcp.NewTool("spec_init",
		mcp.WithDescription(
			"Initialize specgate in the current project. Creates .specgate/config.yaml with the "+
				"default rules and the specs directory. Never overwrites an existing configuration.",
		),
		mcp.WithString("specs_dir",
			mcp.Description("Directory holding the specs, relative to the project root. Defaults to 'specs'."),
			mcp.DefaultString("specs"),
		),
	)
}

// Handle processes the spec_init tool call.
func (t *InitTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, err := t.root()
	if err != nil {
		return nil, fmt.Errorf("finding project root: %w", err)
	}

	cfg, err := config.Init(t.store, root, req.GetString("specs_dir", ""))
	if errors.Is(err, config.ErrAlreadyInitialized) {
		return mcp.NewToolResultError(
			"specgate is already initialized in this project. Read specgate://config to see the current rules.",
		), nil
	}
	if errors.Is(err, config.ErrInvalid) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("initializing: %w", err)
	}

	response := fmt.Sprintf(
		"# specgate initialized\n\n"+
			"**Location:** `%s`\n"+
			"**Specs directory:** `%s/`\n\n"+
			"## Configuration\n\n```yaml\n%s```\n\n"+
			"## Next Step\n\n"+
			"Create a spec directory with a %s, then run `spec_validate`.",
		config.ConfigPath(root), cfg.SpecsDir, cfg.Encode(), cfg.PrimaryDocument,
	)
	return mcp.NewToolResultText(response), nil
}
