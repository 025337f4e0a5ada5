// Package resources implements MCP resource handlers.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (specgate://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specgate/internal/tools"
)

// Resource URIs.
const (
	SpecsURI  = "specgate://specs"
	ConfigURI = "specgate://config"
)

// Handler manages specgate resource endpoints.
type Handler struct {
	open tools.Opener
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(open tools.Opener) *Handler {
	return &Handler{open: open}
}

// SpecsResource returns the MCP resource definition for the spec index.
func (h *Handler) SpecsResource() mcp.Resource {
	return mcp.NewResource(
		SpecsURI,
		"Spec Index",
		mcp.WithResourceDescription("Every spec of the project with its path, title, status and creation date"),
		mcp.WithMIMEType("application/json"),
	)
}

// ConfigResource returns the MCP resource definition for the effective
// configuration.
func (h *Handler) ConfigResource() mcp.Resource {
	return mcp.NewResource(
		ConfigURI,
		"specgate Configuration",
		mcp.WithResourceDescription("Effective validation rules: required sections, strictness, token thresholds"),
		mcp.WithMIMEType("application/json"),
	)
}

type specEntry struct {
	Path        string         `json:"path"`
	Name        string         `json:"name"`
	Title       string         `json:"title"`
	Status      string         `json:"status,omitempty"`
	Date        string         `json:"date,omitempty"`
	File        string         `json:"file"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
}

// HandleSpecs returns the spec index as JSON.
func (h *Handler) HandleSpecs(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	w, err := h.open(ctx)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	list, err := w.Discover(ctx)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	entries := make([]specEntry, 0, len(list))
	for _, s := range list {
		entries = append(entries, specEntry{
			Path:        s.Path,
			Name:        s.Name,
			Title:       s.Title,
			Status:      s.Status,
			Date:        s.Date,
			File:        s.FilePath,
			Frontmatter: s.FrontmatterMap(),
		})
	}
	return jsonResource(req.Params.URI, map[string]any{
		"specsDir": w.SpecsDir(),
		"specs":    entries,
	})
}

// HandleConfig returns the effective configuration as JSON.
func (h *Handler) HandleConfig(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	w, err := h.open(ctx)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	return jsonResource(req.Params.URI, w.Config())
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
