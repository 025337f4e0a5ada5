// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools, prompts and resources. No validation logic
// lives here, only wiring.
package server

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/specgate/internal/config"
	"github.com/HendryAvila/specgate/internal/history"
	"github.com/HendryAvila/specgate/internal/prompts"
	"github.com/HendryAvila/specgate/internal/resources"
	"github.com/HendryAvila/specgate/internal/tools"
	"github.com/HendryAvila/specgate/internal/workspace"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Options configures New. Zero values select the defaults: the project is
// found from the working directory and history lives under Runtime.DataDir.
type Options struct {
	Runtime config.Runtime
	Logger  *slog.Logger

	// Root pins the server to one project instead of searching upward
	// from the working directory.
	Root string

	// DisableHistory skips opening the history database.
	DisableHistory bool
}

// New creates and configures the MCP server with all tools, prompts and
// resources registered.
//
// The returned cleanup function closes the history database and must be
// called on shutdown. It is always non-nil and safe to call even if
// history failed to open.
func New(opts Options) (*server.MCPServer, func(), error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "mcp")

	store := config.NewFileStore()
	wsOpts := workspace.Options{
		Concurrency: opts.Runtime.MaxConcurrency,
		Store:       store,
		Logger:      log,
	}

	open := tools.CwdOpener(wsOpts)
	root := func() (string, error) { return os.Getwd() }
	if opts.Root != "" {
		open = tools.RootOpener(opts.Root, wsOpts)
		root = func() (string, error) { return opts.Root, nil }
	}

	s := server.NewMCPServer(
		"specgate",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Spec tools ---

	initTool := tools.NewInitTool(store, root)
	s.AddTool(initTool.Definition(), initTool.Handle)

	validateTool := tools.NewValidateTool(open)
	s.AddTool(validateTool.Definition(), validateTool.Handle)

	listTool := tools.NewListTool(open)
	s.AddTool(listTool.Definition(), listTool.Handle)

	tokensTool := tools.NewTokensTool(open)
	s.AddTool(tokensTool.Definition(), tokensTool.Handle)

	// --- History ---
	//
	// History is an independent subsystem: if the database cannot be
	// opened the spec tools keep working and spec_history is not
	// registered.

	cleanup := noop
	if opts.DisableHistory || opts.Runtime.DataDir == "" {
		log.Info("history disabled")
	} else if hs, err := history.New(history.DefaultConfig(opts.Runtime.DataDir)); err != nil {
		log.Warn("history subsystem disabled", "error", err)
	} else {
		cleanup = func() {
			if err := hs.Close(); err != nil {
				log.Warn("history store close", "error", err)
			}
		}
		validateTool.SetRecorder(hs)

		historyTool := tools.NewHistoryTool(open, hs)
		s.AddTool(historyTool.Definition(), historyTool.Handle)
	}

	// --- Prompts ---

	reviewPrompt := prompts.NewReviewPrompt()
	s.AddPrompt(reviewPrompt.Definition(), reviewPrompt.Handle)

	newSpecPrompt := prompts.NewNewSpecPrompt()
	s.AddPrompt(newSpecPrompt.Definition(), newSpecPrompt.Handle)

	// --- Resources ---

	resourceHandler := resources.NewHandler(open)
	s.AddResource(resourceHandler.SpecsResource(), resourceHandler.HandleSpecs)
	s.AddResource(resourceHandler.ConfigResource(), resourceHandler.HandleConfig)

	return s, cleanup, nil
}

// noop is the cleanup used when history is disabled.
func noop() {}

// serverInstructions tells the assistant how to use specgate.
func serverInstructions() string {
	return fmt.Sprintf(`You have access to specgate %s, a spec validation server.

A project keeps its specifications as directories under a specs directory
(default "specs/"). Each spec has a primary document (README.md) with a
"# Title", optional frontmatter (status, date) and required "## " sections.
Large specs are split into sub-spec files linked from the primary document.
Rules live in .specgate/config.yaml.

## WHEN TO USE specgate

- After creating or editing a spec, call spec_validate for that spec.
- Before implementing a feature, call spec_list and read the relevant spec.
- When a spec feels long, call spec_tokens to see which sub-specs exceed
  the token budget and should be split.
- When a check keeps failing, call spec_history with a query to find how
  often it failed before.
- In a project without .specgate/config.yaml, call spec_init once.

## READING RESULTS

- Errors fail the spec. Warnings (orphaned sub-specs, broken links,
  sub-specs above target size) do not, unless strict mode is on.
- Use detail_level "summary" for a quick overview, "full" for fix hints.
- Fix errors before warnings. Re-run spec_validate after each fix.

## RESOURCES

- specgate://specs lists every spec with its frontmatter.
- specgate://config shows the effective project rules.`, Version)
}
