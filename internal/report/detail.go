// Package report renders validation results, token sizes, spec listings
// and history for people (text, markdown) and machines (JSON).
//
// Three verbosity levels enable progressive disclosure for MCP clients:
//   - summary: one line per spec with counts
//   - standard: every finding, without fix hints
//   - full: findings with suggestions and timings
package report

import "fmt"

// Detail level constants.
const (
	DetailSummary  = "summary"
	DetailStandard = "standard"
	DetailFull     = "full"
)

// DetailLevelValues returns the enum values for MCP tool definitions.
func DetailLevelValues() []string {
	return []string{DetailSummary, DetailStandard, DetailFull}
}

// ParseDetailLevel normalizes a detail_level string, defaulting to
// "standard" for empty or unrecognized values.
func ParseDetailLevel(s string) string {
	switch s {
	case DetailSummary, DetailFull:
		return s
	default:
		return DetailStandard
	}
}

// SummaryFooter is appended to summary-mode responses.
const SummaryFooter = "\n---\n💡 Use detail_level: standard or full for more detail."

// NavigationHint returns a one-line footer when results are capped by a
// limit, or "" when everything fits.
func NavigationHint(showing, total int, hint string) string {
	if total <= 0 || showing >= total {
		return ""
	}
	if hint != "" {
		return fmt.Sprintf("\n📊 Showing %d of %d. %s", showing, total, hint)
	}
	return fmt.Sprintf("\n📊 Showing %d of %d.", showing, total)
}
