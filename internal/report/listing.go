package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/HendryAvila/specgate/internal/history"
	"github.com/HendryAvila/specgate/internal/specs"
	"github.com/HendryAvila/specgate/internal/tokens"
	"github.com/HendryAvila/specgate/internal/validate"
	"github.com/HendryAvila/specgate/internal/workspace"
)

// JSON writes v as indented JSON followed by a newline.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// ─── Specs ───────────────────────────────────────────────────────────────────

// SpecList renders discovered specs, one per line. Standard detail adds
// status and date when present.
func SpecList(list []*specs.Spec, detail string) string {
	if len(list) == 0 {
		return "No specs found.\n"
	}
	detail = ParseDetailLevel(detail)

	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n\n", english.Plural(len(list), "spec", ""))
	for _, s := range list {
		fmt.Fprintf(&b, "- %s", s.Path)
		if s.Title != "" && s.Title != s.Name {
			fmt.Fprintf(&b, ": %s", s.Title)
		}
		if detail != DetailSummary {
			var meta []string
			if s.Status != "" {
				meta = append(meta, "status: "+s.Status)
			}
			if s.Date != "" {
				meta = append(meta, "created: "+s.Date)
			}
			if detail == DetailFull {
				meta = append(meta, "file: "+s.FilePath)
			}
			if len(meta) > 0 {
				fmt.Fprintf(&b, " (%s)", strings.Join(meta, ", "))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// ─── Tokens ──────────────────────────────────────────────────────────────────

var tierMarks = map[validate.Tier]string{
	validate.TierGood:        "🟢",
	validate.TierAboveTarget: "🟡",
	validate.TierApproaching: "🟠",
	validate.TierOver:        "🔴",
}

// Tokens renders the token sizes of one spec.
func Tokens(tr *workspace.TokenReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Token budget for %s (%s estimator)\n\n", tr.Spec.Path, tr.Estimator)
	fmt.Fprintf(&b, "   %-24s %8s\n", tr.Spec.PrimaryDocument(), tokens.Format(tr.PrimaryTokens))
	for _, s := range tr.SubSpecs {
		fmt.Fprintf(&b, "%s %-24s %8s  %s\n", tierMarks[s.Tier], s.Name, tokens.Format(s.Tokens), s.Tier)
	}
	fmt.Fprintf(&b, "   %-24s %8s\n\n", "total", tokens.Format(tr.Total))
	fmt.Fprintf(&b, "Thresholds: target %s, warning %s, error %s\n",
		tokens.Format(tr.Thresholds.GoodThreshold),
		tokens.Format(tr.Thresholds.WarningThreshold),
		tokens.Format(tr.Thresholds.ErrorThreshold),
	)
	return b.String()
}

// ─── History ─────────────────────────────────────────────────────────────────

// Runs renders recorded runs with times relative to now.
func Runs(runs []history.Run, now time.Time) string {
	if len(runs) == 0 {
		return "No validation runs recorded.\n"
	}
	var b strings.Builder
	for _, r := range runs {
		mark := "✔"
		if !r.Passed {
			mark = "✘"
		}
		fmt.Fprintf(&b, "%s %s  %s  %s  [%s]\n",
			mark, r.SpecPath, counts(r.ErrorCount, r.WarningCount),
			humanize.RelTime(r.CreatedAt, now, "ago", "from now"), shortID(r.ID))
	}
	return b.String()
}

// Issues renders history search results.
func Issues(issues []history.Issue, now time.Time, detail string) string {
	if len(issues) == 0 {
		return "No recorded issues match.\n"
	}
	detail = ParseDetailLevel(detail)

	var b strings.Builder
	fmt.Fprintf(&b, "Found %s:\n\n", english.Plural(len(issues), "issue", ""))
	for i, is := range issues {
		fmt.Fprintf(&b, "[%d] %s %s: %s\n", i+1, is.Severity, is.SpecPath, is.Message)
		if detail == DetailSummary {
			continue
		}
		fmt.Fprintf(&b, "    %s, %s, run %s\n", is.Validator, humanize.RelTime(is.CreatedAt, now, "ago", "from now"), shortID(is.RunID))
		if detail == DetailFull && is.Suggestion != "" {
			fmt.Fprintf(&b, "    → %s\n", is.Suggestion)
		}
	}
	return b.String()
}

// Stats renders aggregate history statistics.
func Stats(st *history.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Runs: %s (%s passed, %s)\n",
		humanize.Comma(int64(st.TotalRuns)),
		humanize.Comma(int64(st.PassedRuns)),
		humanize.FtoaWithDigits(st.PassRate*100, 1)+"%",
	)
	fmt.Fprintf(&b, "Issues: %s\n", humanize.Comma(int64(st.TotalIssues)))
	if len(st.TopMessages) > 0 {
		b.WriteString("\nMost frequent:\n")
		for _, mc := range st.TopMessages {
			fmt.Fprintf(&b, "  %4s × %s\n", humanize.Comma(int64(mc.Count)), mc.Message)
		}
	}
	if len(st.Projects) > 0 {
		fmt.Fprintf(&b, "\nProjects: %s\n", strings.Join(st.Projects, ", "))
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
