package validate

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/HendryAvila/specgate/internal/markdown"
	"github.com/HendryAvila/specgate/internal/specs"
)

// DefaultRequiredSections are the H2 sections every primary document
// should have.
var DefaultRequiredSections = []string{"Overview", "Design"}

var titlePattern = regexp.MustCompile(`^#\s+(.+)$`)

// StructureOptions configures a StructureValidator.
type StructureOptions struct {
	// RequiredSections are H2 heading texts, matched case-insensitively.
	// Nil selects DefaultRequiredSections; an empty slice requires none.
	RequiredSections []string
	// Strict turns missing required sections into errors.
	Strict bool
}

// StructureValidator checks the heading layout of a primary document.
// It holds no per-call state and is safe for concurrent use.
type StructureValidator struct {
	required []string
	strict   bool
}

// NewStructureValidator creates a StructureValidator.
func NewStructureValidator(opts StructureOptions) *StructureValidator {
	required := opts.RequiredSections
	if required == nil {
		required = DefaultRequiredSections
	}
	return &StructureValidator{required: required, strict: opts.Strict}
}

// Validate checks raw, the full primary document of spec.
func (v *StructureValidator) Validate(spec *specs.Spec, raw string) *Result {
	r := NewResult()

	_, body, err := markdown.SplitFrontmatter(raw)
	if err != nil {
		r.AddError("Failed to parse frontmatter", err.Error())
		return r
	}

	lines := markdown.Lines(body)
	if !hasTitle(lines) {
		r.AddError("Missing title (H1 heading)", fmt.Sprintf("Add a '# Title' line to %s", documentName(spec)))
	}

	headings := markdown.ExtractHeadings(body)
	fold := cases.Fold()

	sections := make(map[string]bool)
	for _, h := range headings {
		if h.Level == 2 {
			sections[fold.String(h.Text)] = true
		}
	}
	required := make(map[string]bool, len(v.required))
	for _, name := range v.required {
		key := fold.String(name)
		required[key] = true
		if sections[key] {
			continue
		}
		msg := fmt.Sprintf("Missing required section: ## %s", name)
		hint := fmt.Sprintf("Add a '## %s' section", name)
		if v.strict {
			r.AddError(msg, hint)
		} else {
			r.AddWarning(msg, hint)
		}
	}

	for _, i := range EmptySections(headings, lines) {
		h := headings[i]
		if !required[fold.String(h.Text)] {
			continue
		}
		r.AddWarning(
			fmt.Sprintf("Empty required section: ## %s", h.Text),
			fmt.Sprintf("Add content under '## %s' (line %d)", h.Text, h.Line),
		)
	}

	for _, h := range DuplicateHeadings(headings) {
		r.AddError(
			fmt.Sprintf("Duplicate heading: %s %s (level %d, line %d)", strings.Repeat("#", h.Level), h.Text, h.Level, h.Line),
			"Rename or merge the repeated section",
		)
	}

	return r
}

func hasTitle(lines []string) bool {
	for _, line := range lines {
		if titlePattern.MatchString(line) {
			return true
		}
	}
	return false
}

// EmptySections returns the indexes of H2 headings whose section has no
// content. lines are the lines the headings were extracted from. A
// section with deeper subsections is never empty; comment-only lines
// (<!-- or //) do not count as content.
func EmptySections(headings []markdown.Heading, lines []string) []int {
	var empty []int
	for i, h := range headings {
		if h.Level != 2 || markdown.HasSubsections(headings, i) {
			continue
		}
		end := len(lines)
		if b := markdown.NextBoundary(headings, i); b < len(headings) {
			end = headings[b].Line - 1
		}
		if !hasContent(lines, h.Line, end) {
			empty = append(empty, i)
		}
	}
	return empty
}

// hasContent scans lines[start:end] (0-based, end exclusive).
func hasContent(lines []string, start, end int) bool {
	if end > len(lines) {
		end = len(lines)
	}
	for _, line := range lines[min(start, end):end] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "<!--") || strings.HasPrefix(trimmed, "//") {
			continue
		}
		return true
	}
	return false
}

// DuplicateHeadings returns every repeat of a (level, case-folded text)
// pair after its first occurrence, in document order.
func DuplicateHeadings(headings []markdown.Heading) []markdown.Heading {
	type key struct {
		level int
		text  string
	}
	fold := cases.Fold()
	seen := make(map[key]bool, len(headings))
	var dups []markdown.Heading
	for _, h := range headings {
		k := key{level: h.Level, text: fold.String(h.Text)}
		if seen[k] {
			dups = append(dups, h)
			continue
		}
		seen[k] = true
	}
	return dups
}

func documentName(spec *specs.Spec) string {
	if spec == nil || spec.FilePath == "" {
		return "the primary document"
	}
	return spec.PrimaryDocument()
}
