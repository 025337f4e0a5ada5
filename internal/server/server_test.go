package server

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/specgate/internal/config"
	"github.com/HendryAvila/specgate/internal/logger"
)

func call(t *testing.T, s *server.MCPServer, method string, params any) string {
	t.Helper()
	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		t.Fatal(err)
	}
	resp := s.HandleMessage(context.Background(), msg)
	out, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	return string(out)
}

func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if _, err := config.Init(config.NewFileStore(), root, ""); err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(root, "specs", "001-auth")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	doc := "# Auth\n\n## Overview\n\nLogin.\n\n## Requirements\n\n- Users log in.\n\n## Design\n\nTokens.\n"
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestNew_RegistersTools(t *testing.T) {
	s, cleanup, err := New(Options{
		Runtime: config.Runtime{DataDir: t.TempDir(), MaxConcurrency: 2},
		Logger:  logger.Discard(),
		Root:    newProject(t),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer cleanup()

	out := call(t, s, "tools/list", map[string]any{})
	for _, name := range []string{"spec_init", "spec_validate", "spec_list", "spec_tokens", "spec_history"} {
		if !strings.Contains(out, `"`+name+`"`) {
			t.Errorf("tools/list missing %s:\n%s", name, out)
		}
	}

	prompts := call(t, s, "prompts/list", map[string]any{})
	for _, name := range []string{"spec-review", "spec-new"} {
		if !strings.Contains(prompts, name) {
			t.Errorf("prompts/list missing %s", name)
		}
	}

	res := call(t, s, "resources/list", map[string]any{})
	for _, uri := range []string{"specgate://specs", "specgate://config"} {
		if !strings.Contains(res, uri) {
			t.Errorf("resources/list missing %s", uri)
		}
	}
}

func TestNew_HistoryDisabled(t *testing.T) {
	s, cleanup, err := New(Options{
		Logger:         logger.Discard(),
		Root:           newProject(t),
		DisableHistory: true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer cleanup()

	out := call(t, s, "tools/list", map[string]any{})
	if strings.Contains(out, "spec_history") {
		t.Errorf("spec_history registered with history disabled:\n%s", out)
	}
	if !strings.Contains(out, "spec_validate") {
		t.Errorf("spec tools should still be registered:\n%s", out)
	}
}

func TestNew_HistoryOpenFailure(t *testing.T) {
	// A regular file where the data directory should be.
	blocker := filepath.Join(t.TempDir(), "data")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, cleanup, err := New(Options{
		Runtime: config.Runtime{DataDir: blocker},
		Logger:  logger.Discard(),
		Root:    newProject(t),
	})
	if err != nil {
		t.Fatalf("history failure should not fail New: %v", err)
	}
	cleanup()

	if out := call(t, s, "tools/list", map[string]any{}); strings.Contains(out, "spec_history") {
		t.Error("spec_history should be skipped when the store cannot open")
	}
}

func TestNew_ValidateCall(t *testing.T) {
	s, cleanup, err := New(Options{
		Runtime: config.Runtime{DataDir: t.TempDir()},
		Logger:  logger.Discard(),
		Root:    newProject(t),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	out := call(t, s, "tools/call", map[string]any{
		"name":      "spec_validate",
		"arguments": map[string]any{"spec": "001"},
	})
	if !strings.Contains(out, "All specs pass") {
		t.Errorf("spec_validate response:\n%s", out)
	}
}

func TestServerInstructions(t *testing.T) {
	got := serverInstructions()
	if !strings.Contains(got, "specgate "+Version) {
		t.Error("instructions should carry the version")
	}
	for _, tool := range []string{"spec_validate", "spec_list", "spec_tokens", "spec_history", "spec_init"} {
		if !strings.Contains(got, tool) {
			t.Errorf("instructions do not mention %s", tool)
		}
	}
}
