package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize/english"

	"github.com/HendryAvila/specgate/internal/validate"
)

// ─── Text ────────────────────────────────────────────────────────────────────

// Text writes a terminal report. Passing specs get a single line.
// Failing or warned specs list their findings; full detail adds fix
// hints.
func Text(w io.Writer, rep *validate.Report, detail string) error {
	detail = ParseDetailLevel(detail)
	var b strings.Builder

	for _, sr := range rep.Specs {
		mark := "✔"
		if !sr.Passed {
			mark = "✘"
		}
		fmt.Fprintf(&b, "%s %s", mark, sr.Spec.Path)
		if sr.Spec.Title != "" && sr.Spec.Title != sr.Spec.Name {
			fmt.Fprintf(&b, "  %s", sr.Spec.Title)
		}
		if detail == DetailSummary {
			fmt.Fprintf(&b, "  (%s)", counts(sr.ErrorCount(), sr.WarningCount()))
		}
		b.WriteString("\n")
		if detail == DetailSummary {
			continue
		}

		for _, f := range sr.Findings() {
			fmt.Fprintf(&b, "    %-8s [%s] %s\n", f.Severity, f.Validator, f.Message)
			if detail == DetailFull && f.Suggestion != "" {
				fmt.Fprintf(&b, "    %-8s hint: %s\n", "", f.Suggestion)
			}
		}
	}

	if len(rep.Specs) > 0 {
		b.WriteString("\n")
	}
	b.WriteString(Totals(rep))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Totals is the one-line summary of a report.
func Totals(rep *validate.Report) string {
	failed := 0
	for _, sr := range rep.Specs {
		if !sr.Passed {
			failed++
		}
	}
	return fmt.Sprintf("%s, %d failed, %s",
		english.Plural(len(rep.Specs), "spec", ""),
		failed,
		counts(rep.ErrorCount, rep.WarningCount),
	)
}

func counts(errors, warnings int) string {
	return english.Plural(errors, "error", "") + ", " + english.Plural(warnings, "warning", "")
}

// ─── Markdown ────────────────────────────────────────────────────────────────

// Markdown renders a report for an MCP client.
func Markdown(rep *validate.Report, detail string) string {
	detail = ParseDetailLevel(detail)
	var b strings.Builder

	status := "✅ All specs pass"
	if !rep.Passed {
		status = "❌ Validation failed"
	}
	fmt.Fprintf(&b, "# Spec validation\n\n%s: %s\n", status, Totals(rep))

	if len(rep.Specs) == 0 {
		b.WriteString("\nNo specs found.\n")
		return b.String()
	}

	for _, sr := range rep.Specs {
		b.WriteString("\n")
		writeSpecMarkdown(&b, sr, detail)
	}

	if detail == DetailSummary {
		b.WriteString(SummaryFooter)
	}
	return b.String()
}

// SpecMarkdown renders a single spec report.
func SpecMarkdown(sr *validate.SpecReport, detail string) string {
	var b strings.Builder
	writeSpecMarkdown(&b, sr, ParseDetailLevel(detail))
	return b.String()
}

func writeSpecMarkdown(b *strings.Builder, sr *validate.SpecReport, detail string) {
	mark := "✅"
	if !sr.Passed {
		mark = "❌"
	}

	if detail == DetailSummary {
		fmt.Fprintf(b, "- %s **%s** (%s)\n", mark, sr.Spec.Path, counts(sr.ErrorCount(), sr.WarningCount()))
		return
	}

	fmt.Fprintf(b, "## %s %s\n", mark, sr.Spec.Path)
	if sr.Spec.Title != "" && sr.Spec.Title != sr.Spec.Name {
		fmt.Fprintf(b, "_%s_\n", sr.Spec.Title)
	}

	writeIssues(b, "Errors", validate.ValidatorStructure, sr.Structure.Errors, validate.ValidatorSubSpecs, sr.SubSpecs.Errors, detail)
	writeIssues(b, "Warnings", validate.ValidatorStructure, sr.Structure.Warnings, validate.ValidatorSubSpecs, sr.SubSpecs.Warnings, detail)

	if sr.ErrorCount() == 0 && sr.WarningCount() == 0 {
		b.WriteString("\nNo findings.\n")
	}
	if detail == DetailFull {
		fmt.Fprintf(b, "\n⏱ %s\n", sr.Duration.Round(time.Microsecond))
	}
}

func writeIssues(b *strings.Builder, heading, v1 string, i1 []validate.Issue, v2 string, i2 []validate.Issue, detail string) {
	if len(i1)+len(i2) == 0 {
		return
	}
	fmt.Fprintf(b, "\n**%s**\n", heading)
	write := func(validator string, issues []validate.Issue) {
		for _, is := range issues {
			fmt.Fprintf(b, "- [%s] %s\n", validator, is.Message)
			if detail == DetailFull && is.Suggestion != "" {
				fmt.Fprintf(b, "  → %s\n", is.Suggestion)
			}
		}
	}
	write(v1, i1)
	write(v2, i2)
}
