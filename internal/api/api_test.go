package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HendryAvila/specgate/internal/history"
	"github.com/HendryAvila/specgate/internal/logger"
	"github.com/HendryAvila/specgate/internal/workspace"
)

// ─── Helpers ─────────────────────────────────────────────────────────────────

const goodReadme = "---\nstatus: draft\ncreated: 2026-01-02\n---\n# Auth Service\n\nToken based login.\n\n## Overview\n\nx\n\n## Design\n\nSee [api](API.md).\n"

func setupProject(t *testing.T) Opener {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"specs/001-auth/README.md":       goodReadme,
		"specs/001-auth/API.md":          "# API\n\nEndpoints.\n",
		"specs/002-bad/README.md":        "---\nstatus: approved\n---\nno title\n",
		"specs/auth/003-login/README.md": "# Login\n\n## Overview\n\nx\n\n## Design\n\ny\n",
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
	opts := workspace.Options{Logger: logger.Discard()}
	return func(ctx context.Context) (*workspace.Workspace, error) {
		return workspace.Open(root, opts)
	}
}

func newHistory(t *testing.T) *history.Store {
	t.Helper()
	hs, err := history.New(history.DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	t.Cleanup(func() { _ = hs.Close() })
	return hs
}

func do(t *testing.T, h http.Handler, method, target string, header map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("%s %s: invalid JSON %q: %v", method, target, rec.Body.String(), err)
	}
	return rec, body
}

// ─── Routes ──────────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	s := NewServer(setupProject(t), nil, logger.Discard(), Config{APIKey: "secret"})
	rec, body := do(t, s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health = %d %v", rec.Code, body)
	}
}

func TestListSpecs(t *testing.T) {
	s := NewServer(setupProject(t), nil, logger.Discard(), Config{})

	rec, body := do(t, s, http.MethodGet, "/api/specs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	list := body["specs"].([]any)
	if len(list) != 3 {
		t.Fatalf("specs = %d, want 3", len(list))
	}
	first := list[0].(map[string]any)
	if first["path"] != "001-auth" || first["title"] != "Auth Service" || first["status"] != "draft" {
		t.Errorf("first spec = %v", first)
	}

	_, body = do(t, s, http.MethodGet, "/api/specs?status=APPROVED", nil)
	if got := body["specs"].([]any); len(got) != 1 {
		t.Errorf("status filter returned %d specs", len(got))
	}

	_, body = do(t, s, http.MethodGet, "/api/specs?status=archived", nil)
	if got := body["specs"].([]any); len(got) != 0 {
		t.Errorf("empty filter should return [], got %v", got)
	}
}

func TestGetSpec(t *testing.T) {
	s := NewServer(setupProject(t), nil, logger.Discard(), Config{})

	rec, body := do(t, s, http.MethodGet, "/api/specs/001", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", rec.Code, body)
	}
	if fm := body["frontmatter"].(map[string]any); fm["status"] != "draft" {
		t.Errorf("frontmatter = %v", fm)
	}
	if subs := body["subSpecs"].([]any); len(subs) != 1 || subs[0] != "API.md" {
		t.Errorf("subSpecs = %v", subs)
	}

	rec, body = do(t, s, http.MethodGet, "/api/specs/auth%2F003-login", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("nested ref status = %d: %v", rec.Code, body)
	}
	if spec := body["spec"].(map[string]any); spec["path"] != "auth/003-login" {
		t.Errorf("nested spec = %v", spec)
	}
}

func TestGetSpec_NotFound(t *testing.T) {
	s := NewServer(setupProject(t), nil, logger.Discard(), Config{})
	rec, body := do(t, s, http.MethodGet, "/api/specs/999", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if body["error"] == nil {
		t.Errorf("missing error body: %v", body)
	}
}

func TestValidateSpec(t *testing.T) {
	hs := newHistory(t)
	s := NewServer(setupProject(t), hs, logger.Discard(), Config{})

	rec, body := do(t, s, http.MethodGet, "/api/specs/002-bad/validate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", rec.Code, body)
	}
	if body["passed"] != false {
		t.Errorf("002-bad should fail: %v", body)
	}

	runs, err := hs.Recent("", "002-bad", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Passed {
		t.Errorf("recorded runs = %+v", runs)
	}
}

func TestValidateSpec_BadFlag(t *testing.T) {
	s := NewServer(setupProject(t), nil, logger.Discard(), Config{})
	rec, _ := do(t, s, http.MethodGet, "/api/specs/001/validate?strict=maybe", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestValidateAll(t *testing.T) {
	s := NewServer(setupProject(t), nil, logger.Discard(), Config{})

	rec, body := do(t, s, http.MethodPost, "/api/validate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", rec.Code, body)
	}
	if body["passed"] != false || len(body["specs"].([]any)) != 3 {
		t.Errorf("report = %v", body)
	}
	if body["errorCount"].(float64) < 1 {
		t.Errorf("errorCount = %v", body["errorCount"])
	}

	_, body = do(t, s, http.MethodPost, "/api/validate?spec=001&spec=003", nil)
	if body["passed"] != true || len(body["specs"].([]any)) != 2 {
		t.Errorf("filtered report = %v", body)
	}

	rec, _ = do(t, s, http.MethodPost, "/api/validate?spec=404", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown ref status = %d, want 404", rec.Code)
	}
}

func TestTokens(t *testing.T) {
	s := NewServer(setupProject(t), nil, logger.Discard(), Config{})
	rec, body := do(t, s, http.MethodGet, "/api/specs/001-auth/tokens", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", rec.Code, body)
	}
	if body["estimator"] != "words" || body["total"].(float64) <= 0 {
		t.Errorf("tokens = %v", body)
	}
}

func TestHistory(t *testing.T) {
	hs := newHistory(t)
	s := NewServer(setupProject(t), hs, logger.Discard(), Config{})

	do(t, s, http.MethodPost, "/api/validate", nil)

	rec, body := do(t, s, http.MethodGet, "/api/history?q=title", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", rec.Code, body)
	}
	issues := body["issues"].([]any)
	if len(issues) == 0 {
		t.Fatal("expected issues matching 'title'")
	}
	if msg := issues[0].(map[string]any)["message"].(string); !strings.Contains(msg, "title") {
		t.Errorf("first issue = %q", msg)
	}
	if _, ok := body["runs"]; ok {
		t.Error("runs should only be listed without a query")
	}

	_, body = do(t, s, http.MethodGet, "/api/history?spec=002", nil)
	runs := body["runs"].([]any)
	if len(runs) != 1 || runs[0].(map[string]any)["spec_path"] != "002-bad" {
		t.Errorf("runs = %v", runs)
	}

	rec, _ = do(t, s, http.MethodGet, "/api/history?limit=-1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative limit status = %d", rec.Code)
	}
}

func TestHistory_Disabled(t *testing.T) {
	s := NewServer(setupProject(t), nil, logger.Discard(), Config{})
	rec, _ := do(t, s, http.MethodGet, "/api/history", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

// ─── Auth ────────────────────────────────────────────────────────────────────

func TestAuth(t *testing.T) {
	s := NewServer(setupProject(t), nil, logger.Discard(), Config{APIKey: "secret"})

	tests := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"wrong scheme", map[string]string{"Authorization": "Basic secret"}, http.StatusUnauthorized},
		{"wrong key", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"valid", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := do(t, s, http.MethodGet, "/api/specs", tt.header)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestWorkspaceOpenFailure(t *testing.T) {
	open := func(ctx context.Context) (*workspace.Workspace, error) {
		return nil, os.ErrPermission
	}
	s := NewServer(open, nil, logger.Discard(), Config{})
	rec, body := do(t, s, http.MethodGet, "/api/specs", nil)
	if rec.Code != http.StatusInternalServerError || body["error"] == nil {
		t.Errorf("got %d %v", rec.Code, body)
	}
}
