package resources

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specgate/internal/logger"
	"github.com/HendryAvila/specgate/internal/tools"
	"github.com/HendryAvila/specgate/internal/workspace"
)

func setupProject(t *testing.T) tools.Opener {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		".specgate/config.yaml":    "structure:\n  strict: true\n",
		"specs/001-auth/README.md": "---\nstatus: draft\ntags:\n  - auth\n---\n# Auth\n",
		"specs/002-pay/README.md":  "# Pay\n",
	}
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return tools.RootOpener(root, workspace.Options{Logger: logger.Discard()})
}

func readText(t *testing.T, contents []mcp.ResourceContents) (string, string) {
	t.Helper()
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("content type = %T", contents[0])
	}
	return tc.MIMEType, tc.Text
}

func request(uri string) mcp.ReadResourceRequest {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	return req
}

func TestHandleSpecs(t *testing.T) {
	h := NewHandler(setupProject(t))
	if h.SpecsResource().URI != SpecsURI {
		t.Errorf("URI = %s", h.SpecsResource().URI)
	}

	contents, err := h.HandleSpecs(context.Background(), request(SpecsURI))
	if err != nil {
		t.Fatal(err)
	}
	mime, text := readText(t, contents)
	if mime != "application/json" {
		t.Errorf("MIME = %s", mime)
	}

	var index struct {
		Specs []struct {
			Path        string         `json:"path"`
			Title       string         `json:"title"`
			Status      string         `json:"status"`
			Frontmatter map[string]any `json:"frontmatter"`
		} `json:"specs"`
	}
	if err := json.Unmarshal([]byte(text), &index); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, text)
	}
	if len(index.Specs) != 2 || index.Specs[0].Title != "Auth" || index.Specs[0].Status != "draft" {
		t.Errorf("index = %+v", index)
	}
	if tags, _ := index.Specs[0].Frontmatter["tags"].([]any); len(tags) != 1 || tags[0] != "auth" {
		t.Errorf("frontmatter = %v", index.Specs[0].Frontmatter)
	}
}

func TestHandleConfig(t *testing.T) {
	h := NewHandler(setupProject(t))
	contents, err := h.HandleConfig(context.Background(), request(ConfigURI))
	if err != nil {
		t.Fatal(err)
	}
	_, text := readText(t, contents)
	if !strings.Contains(text, `"strict": true`) || !strings.Contains(text, `"errorThreshold": 5000`) {
		t.Errorf("config:\n%s", text)
	}
}

func TestHandle_OpenError(t *testing.T) {
	h := NewHandler(func(context.Context) (*workspace.Workspace, error) {
		return nil, errors.New("no project")
	})
	contents, err := h.HandleConfig(context.Background(), request(ConfigURI))
	if err != nil {
		t.Fatal(err)
	}
	mime, text := readText(t, contents)
	if mime != "text/plain" || text != "Error: no project" {
		t.Errorf("got %s %q", mime, text)
	}
}
