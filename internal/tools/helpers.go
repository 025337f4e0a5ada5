// Package tools implements the MCP tool handlers of specgate.
//
// Each tool is a struct whose dependencies are injected through its
// constructor, with Definition() returning the mcp.Tool schema and
// Handle() processing a call. Argument problems come back as tool
// errors so the assistant can correct the call; only infrastructure
// failures are returned as Go errors.
package tools

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specgate/internal/config"
	"github.com/HendryAvila/specgate/internal/workspace"
)

// Opener returns the workspace a tool call operates on.
type Opener func(ctx context.Context) (*workspace.Workspace, error)

// CwdOpener opens the project containing the working directory, walking
// up to the nearest .specgate/config.yaml.
func CwdOpener(opts workspace.Options) Opener {
	return func(ctx context.Context) (*workspace.Workspace, error) {
		dir, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		root, err := config.FindProjectRoot(dir)
		if err != nil {
			return nil, err
		}
		return workspace.Open(root, opts)
	}
}

// RootOpener always opens root.
func RootOpener(root string, opts workspace.Options) Opener {
	return func(ctx context.Context) (*workspace.Workspace, error) {
		return workspace.Open(root, opts)
	}
}

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// optionalBool returns nil when key is absent so the configured value
// stays in effect.
func optionalBool(req mcp.CallToolRequest, key string) *bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return nil
	}
	return &v
}

// refError turns a spec lookup failure into a tool error when the
// reference itself is at fault.
func refError(err error) (*mcp.CallToolResult, error) {
	if workspace.IsNotFound(err) || workspace.IsAmbiguous(err) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, err
}
