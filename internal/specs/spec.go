// Package specs discovers spec directories and describes them.
//
// A spec is a directory that contains a primary document (README.md by
// default). Every other markdown file in that directory is a sub-spec.
package specs

import (
	"errors"
	"path/filepath"

	"github.com/HendryAvila/specgate/internal/configlang"
)

// Sentinel errors returned by Loader.Find.
var (
	ErrNotFound  = errors.New("spec not found")
	ErrAmbiguous = errors.New("spec reference is ambiguous")
)

// Spec identifies a spec directory and its primary document. It is
// created by the Loader and never mutated by the validators.
type Spec struct {
	Path     string `json:"path"`     // slash-separated, relative to the specs dir
	FullPath string `json:"fullPath"` // absolute directory
	FilePath string `json:"filePath"` // absolute primary document
	Name     string `json:"name"`     // directory base name
	Date     string `json:"date,omitempty"`
	Status   string `json:"status,omitempty"`
	Title    string `json:"title"`

	// Frontmatter is nil when the primary document's frontmatter block
	// could not be parsed.
	Frontmatter *configlang.Mapping `json:"-"`
}

// PrimaryDocument returns the primary document's file name.
func (s *Spec) PrimaryDocument() string {
	return filepath.Base(s.FilePath)
}

// FrontmatterMap returns the frontmatter as plain Go values for JSON
// rendering. It returns nil when the frontmatter is missing or malformed.
func (s *Spec) FrontmatterMap() map[string]any {
	if s.Frontmatter == nil || s.Frontmatter.Len() == 0 {
		return nil
	}
	m, _ := configlang.ToNative(s.Frontmatter).(map[string]any)
	return m
}

// applyFrontmatter copies the well-known frontmatter keys onto the spec.
// Keys holding a non-string value are ignored.
func (s *Spec) applyFrontmatter(fm *configlang.Mapping) {
	s.Frontmatter = fm
	for _, key := range []string{"created", "date"} {
		if v, ok := fm.Get(key); ok {
			if text, scalar := configlang.Scalar(v); scalar && text != "" {
				s.Date = text
				break
			}
		}
	}
	if status, ok, _ := fm.GetString("status"); ok {
		s.Status = status
	}
	if title, ok, _ := fm.GetString("title"); ok && title != "" {
		s.Title = title
	}
}
