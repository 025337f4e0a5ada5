package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specgate/internal/config"
	"github.com/HendryAvila/specgate/internal/history"
	"github.com/HendryAvila/specgate/internal/logger"
	"github.com/HendryAvila/specgate/internal/workspace"
)

// --- Test helpers ---

const (
	goodReadme = "---\nstatus: draft\n---\n# Auth Service\n\n## Overview\n\nx\n\n## Design\n\nSee [design](DESIGN.md).\n"
	badReadme  = "---\nstatus: approved\n---\nno title\n"
)

// setupTestProject writes a project with one passing and one failing
// spec and returns an opener for it.
func setupTestProject(t *testing.T) (string, Opener) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"specs/001-auth/README.md": goodReadme,
		"specs/001-auth/DESIGN.md": "# Design\n\nSee [models](MODELS.md).\n",
		"specs/002-bad/README.md":  badReadme,
	}
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("setup: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	return root, RootOpener(root, workspace.Options{Logger: logger.Discard()})
}

func newTestHistory(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.New(history.DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// isErrorResult checks if the result is a tool error.
func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func call(t *testing.T, handle func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	result, err := handle(context.Background(), makeReq(args))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	return result
}

// --- ValidateTool ---

func TestValidateTool_Definition(t *testing.T) {
	_, open := setupTestProject(t)
	def := NewValidateTool(open).Definition()

	if def.Name != "spec_validate" {
		t.Errorf("tool name = %q, want spec_validate", def.Name)
	}
	for _, p := range []string{"spec", "strict", "check_cross_references", "detail_level"} {
		if _, ok := def.InputSchema.Properties[p]; !ok {
			t.Errorf("missing %q parameter", p)
		}
	}
	if len(def.InputSchema.Required) != 0 {
		t.Errorf("no parameter should be required, got %v", def.InputSchema.Required)
	}
}

func TestValidateTool_AllSpecs(t *testing.T) {
	_, open := setupTestProject(t)
	result := call(t, NewValidateTool(open).Handle, nil)

	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}
	text := getResultText(result)
	for _, want := range []string{"❌ Validation failed", "## ✅ 001-auth", "## ❌ 002-bad", "Missing title (H1 heading)", "Broken reference in DESIGN.md: MODELS.md does not exist", "📏 ~"} {
		if !strings.Contains(text, want) {
			t.Errorf("result missing %q:\n%s", want, text)
		}
	}
}

func TestValidateTool_Overrides(t *testing.T) {
	_, open := setupTestProject(t)
	tool := NewValidateTool(open)

	text := getResultText(call(t, tool.Handle, map[string]interface{}{
		"spec":                   "001",
		"check_cross_references": false,
	}))
	if strings.Contains(text, "Broken reference") || strings.Contains(text, "002-bad") {
		t.Errorf("single spec with cross-references off:\n%s", text)
	}

	text = getResultText(call(t, tool.Handle, map[string]interface{}{
		"spec":         "002-bad",
		"strict":       true,
		"detail_level": "full",
	}))
	if !strings.Contains(text, "3 errors") || !strings.Contains(text, "→ Add a '## Overview' section") {
		t.Errorf("strict full validation:\n%s", text)
	}
}

func TestValidateTool_UnknownSpec(t *testing.T) {
	_, open := setupTestProject(t)
	result := call(t, NewValidateTool(open).Handle, map[string]interface{}{"spec": "999"})
	if !isErrorResult(result) {
		t.Fatalf("expected tool error, got: %s", getResultText(result))
	}
	if !strings.Contains(getResultText(result), "spec not found") {
		t.Errorf("error text = %s", getResultText(result))
	}
}

func TestValidateTool_RecordsHistory(t *testing.T) {
	root, open := setupTestProject(t)
	store := newTestHistory(t)
	tool := NewValidateTool(open)
	tool.SetRecorder(store)

	call(t, tool.Handle, nil)

	runs, err := store.Recent(filepath.Base(root), "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("recorded %d runs, want 2", len(runs))
	}
	if runs[0].SpecPath != "002-bad" || runs[0].Passed {
		t.Errorf("latest run = %+v", runs[0])
	}
}

// --- ListTool ---

func TestListTool_Handle(t *testing.T) {
	_, open := setupTestProject(t)
	tool := NewListTool(open)

	text := getResultText(call(t, tool.Handle, nil))
	if !strings.Contains(text, "2 specs:") || !strings.Contains(text, "- 001-auth: Auth Service (status: draft)") {
		t.Errorf("list:\n%s", text)
	}

	text = getResultText(call(t, tool.Handle, map[string]interface{}{"status": "APPROVED"}))
	if !strings.Contains(text, "1 spec:") || !strings.Contains(text, "002-bad") {
		t.Errorf("filtered list:\n%s", text)
	}
}

// --- TokensTool ---

func TestTokensTool_Handle(t *testing.T) {
	_, open := setupTestProject(t)
	tool := NewTokensTool(open)

	if def := tool.Definition(); len(def.InputSchema.Required) != 1 || def.InputSchema.Required[0] != "spec" {
		t.Errorf("required = %v, want [spec]", def.InputSchema.Required)
	}

	text := getResultText(call(t, tool.Handle, map[string]interface{}{"spec": "001-auth"}))
	if !strings.Contains(text, "Token budget for 001-auth (words estimator)") || !strings.Contains(text, "DESIGN.md") {
		t.Errorf("tokens:\n%s", text)
	}

	if result := call(t, tool.Handle, nil); !isErrorResult(result) {
		t.Error("missing spec should be a tool error")
	}
}

// --- HistoryTool ---

func TestHistoryTool_Handle(t *testing.T) {
	_, open := setupTestProject(t)
	store := newTestHistory(t)
	validateTool := NewValidateTool(open)
	validateTool.SetRecorder(store)
	call(t, validateTool.Handle, nil)

	tool := NewHistoryTool(open, store)

	text := getResultText(call(t, tool.Handle, nil))
	if !strings.Contains(text, "✘ 002-bad") || !strings.Contains(text, "Runs: 2 (1 passed, 50%)") {
		t.Errorf("recent runs:\n%s", text)
	}

	text = getResultText(call(t, tool.Handle, map[string]interface{}{"query": "title", "spec": "002"}))
	if !strings.Contains(text, "Found 1 issue:") || !strings.Contains(text, "002-bad: Missing title (H1 heading)") {
		t.Errorf("search:\n%s", text)
	}

	text = getResultText(call(t, tool.Handle, map[string]interface{}{"query": "nonexistentword"}))
	if !strings.Contains(text, "No recorded issues match.") {
		t.Errorf("empty search:\n%s", text)
	}
}

// --- InitTool ---

func TestInitTool_Handle(t *testing.T) {
	root := t.TempDir()
	tool := NewInitTool(config.NewFileStore(), func() (string, error) { return root, nil })

	result := call(t, tool.Handle, map[string]interface{}{"specs_dir": "design"})
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}
	text := getResultText(result)
	if !strings.Contains(text, "specgate initialized") || !strings.Contains(text, "specsDir: design") {
		t.Errorf("init:\n%s", text)
	}
	if !config.Exists(root) {
		t.Error("config should exist after init")
	}

	if again := call(t, tool.Handle, nil); !isErrorResult(again) {
		t.Error("second init should be a tool error")
	}
}
