package validate

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/HendryAvila/specgate/internal/markdown"
	"github.com/HendryAvila/specgate/internal/specs"
	"github.com/HendryAvila/specgate/internal/tokens"
)

// Default token budget for a single sub-spec.
const (
	DefaultGoodThreshold    = 2000
	DefaultWarningThreshold = 3500
	DefaultErrorThreshold   = 5000
)

// SubSpecOptions configures a SubSpecValidator. Zero thresholds fall back
// to the defaults; start from DefaultSubSpecOptions to keep
// CheckCrossReferences enabled.
type SubSpecOptions struct {
	GoodThreshold        int
	WarningThreshold     int
	ErrorThreshold       int
	CheckCrossReferences bool
	// Estimator counts tokens. Nil selects tokens.Default.
	Estimator tokens.Estimator
}

// DefaultSubSpecOptions returns the default budget with cross-reference
// checking on.
func DefaultSubSpecOptions() SubSpecOptions {
	return SubSpecOptions{
		GoodThreshold:        DefaultGoodThreshold,
		WarningThreshold:     DefaultWarningThreshold,
		ErrorThreshold:       DefaultErrorThreshold,
		CheckCrossReferences: true,
	}
}

// Tier classifies a token count against the budget.
type Tier string

const (
	TierGood        Tier = "good"         // below the good threshold
	TierAboveTarget Tier = "above-target" // between good and warning
	TierApproaching Tier = "approaching"  // between warning and error
	TierOver        Tier = "over"         // at or above the error threshold
)

// SubSpecSize is the measured size of one sub-spec.
type SubSpecSize struct {
	Name   string `json:"name"`
	Tokens int    `json:"tokens"`
	Tier   Tier   `json:"tier"`
}

// SubSpecValidator checks the companion documents of a spec. It holds no
// per-call state and is safe for concurrent use.
type SubSpecValidator struct {
	storage  specs.Storage
	opts     SubSpecOptions
	estimate tokens.Estimator
}

// NewSubSpecValidator creates a SubSpecValidator reading through storage.
func NewSubSpecValidator(storage specs.Storage, opts SubSpecOptions) *SubSpecValidator {
	if opts.GoodThreshold <= 0 {
		opts.GoodThreshold = DefaultGoodThreshold
	}
	if opts.WarningThreshold <= 0 {
		opts.WarningThreshold = DefaultWarningThreshold
	}
	if opts.ErrorThreshold <= 0 {
		opts.ErrorThreshold = DefaultErrorThreshold
	}
	estimate := opts.Estimator
	if estimate == nil {
		estimate = tokens.Default
	}
	return &SubSpecValidator{storage: storage, opts: opts, estimate: estimate}
}

// Options returns the effective options.
func (v *SubSpecValidator) Options() SubSpecOptions { return v.opts }

// Classify places a token count in its budget tier.
func (v *SubSpecValidator) Classify(count int) Tier {
	switch {
	case count >= v.opts.ErrorThreshold:
		return TierOver
	case count >= v.opts.WarningThreshold:
		return TierApproaching
	case count >= v.opts.GoodThreshold:
		return TierAboveTarget
	default:
		return TierGood
	}
}

// subSpec is a sub-spec file and its content. Content is empty and
// readable false when the file could not be read.
type subSpec struct {
	name     string
	content  string
	readable bool
}

// List returns the sub-spec file names of spec: every markdown file in
// the spec directory except the primary document. Listing failures yield
// no sub-specs.
func (v *SubSpecValidator) List(ctx context.Context, spec *specs.Spec) []string {
	files, err := v.storage.ListFiles(ctx, spec.FullPath)
	if err != nil {
		return nil
	}
	primary := spec.PrimaryDocument()
	var names []string
	for _, name := range files {
		if !strings.EqualFold(filepath.Ext(name), ".md") || strings.EqualFold(name, primary) {
			continue
		}
		names = append(names, name)
	}
	return names
}

func (v *SubSpecValidator) load(ctx context.Context, spec *specs.Spec) []subSpec {
	names := v.List(ctx, spec)
	subs := make([]subSpec, 0, len(names))
	for _, name := range names {
		content, err := v.storage.ReadFile(ctx, filepath.Join(spec.FullPath, name))
		subs = append(subs, subSpec{name: name, content: content, readable: err == nil})
	}
	return subs
}

// Measure returns the token size of every readable sub-spec.
func (v *SubSpecValidator) Measure(ctx context.Context, spec *specs.Spec) []SubSpecSize {
	var sizes []SubSpecSize
	for _, s := range v.load(ctx, spec) {
		if !s.readable {
			continue
		}
		n := v.estimate(s.content)
		sizes = append(sizes, SubSpecSize{Name: s.name, Tokens: n, Tier: v.Classify(n)})
	}
	return sizes
}

// Validate checks the sub-specs of spec. primaryContent is the raw
// primary document, scanned for links to sub-specs.
func (v *SubSpecValidator) Validate(ctx context.Context, spec *specs.Spec, primaryContent string) *Result {
	r := NewResult()
	subs := v.load(ctx, spec)
	if len(subs) == 0 {
		return r
	}
	primary := spec.PrimaryDocument()

	upper := cases.Upper(language.Und)
	for _, s := range subs {
		ext := filepath.Ext(s.name)
		stem := strings.TrimSuffix(s.name, ext)
		if !hasLower(stem) {
			continue
		}
		want := upper.String(stem) + ext
		r.AddWarning(
			fmt.Sprintf("Sub-spec filename %s should be uppercase", s.name),
			fmt.Sprintf("Rename %s to %s", s.name, want),
		)
	}

	for _, s := range subs {
		if !s.readable {
			continue
		}
		v.checkBudget(r, s.name, v.estimate(s.content))
	}

	linked := markdown.LinkTargets(primaryContent)
	for _, s := range subs {
		if linked[s.name] {
			continue
		}
		r.AddWarning(
			fmt.Sprintf("Orphaned sub-spec: %s is not linked from %s", s.name, primary),
			fmt.Sprintf("Add a link such as [%s](./%s) to %s", strings.TrimSuffix(s.name, filepath.Ext(s.name)), s.name, primary),
		)
	}

	if v.opts.CheckCrossReferences {
		for _, s := range subs {
			if s.readable {
				v.checkReferences(ctx, r, spec, s)
			}
		}
	}

	return r
}

func (v *SubSpecValidator) checkBudget(r *Result, name string, count int) {
	switch v.Classify(count) {
	case TierOver:
		r.AddError(
			fmt.Sprintf("%s is ~%s tokens, over the %s-token threshold", name, tokens.Format(count), tokens.Format(v.opts.ErrorThreshold)),
			fmt.Sprintf("Split %s into smaller sub-specs", name),
		)
	case TierApproaching:
		r.AddWarning(
			fmt.Sprintf("%s is ~%s tokens, approaching the %s-token threshold", name, tokens.Format(count), tokens.Format(v.opts.ErrorThreshold)),
			"Consider splitting it before it grows further",
		)
	case TierAboveTarget:
		r.AddWarning(
			fmt.Sprintf("%s is ~%s tokens, above the %s-token target", name, tokens.Format(count), tokens.Format(v.opts.GoodThreshold)),
			"Keep sub-specs focused on a single topic",
		)
	}
}

// checkReferences reports each distinct link target in s that does not
// exist beside it. A link to the primary document is always valid.
func (v *SubSpecValidator) checkReferences(ctx context.Context, r *Result, spec *specs.Spec, s subSpec) {
	primary := spec.PrimaryDocument()
	seen := make(map[string]bool)
	for _, link := range markdown.ExtractLinks(s.content) {
		if seen[link.Target] || strings.EqualFold(link.Target, primary) {
			continue
		}
		seen[link.Target] = true

		ok, err := v.storage.Exists(ctx, filepath.Join(spec.FullPath, link.Target))
		if err != nil || ok {
			continue
		}
		r.AddWarning(
			fmt.Sprintf("Broken reference in %s: %s does not exist", s.name, link.Target),
			fmt.Sprintf("Fix or remove the link on line %d of %s", link.Line, s.name),
		)
	}
}

func hasLower(s string) bool {
	for _, r := range s {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}
