package validate_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/HendryAvila/specgate/internal/validate"
)

// fixture is one spec directory in memory.
type fixture struct {
	store  *memStorage
	readme string
}

func newFixture(readme string, subs map[string]string) *fixture {
	store := newMemStorage()
	store.put("/specs/001/README.md", readme)
	for name, content := range subs {
		store.put("/specs/001/"+name, content)
	}
	return &fixture{store: store, readme: readme}
}

func (f *fixture) validate(opts validate.SubSpecOptions) *validate.Result {
	if opts.Estimator == nil {
		opts.Estimator = lengthEstimator
	}
	v := validate.NewSubSpecValidator(f.store, opts)
	return v.Validate(context.Background(), specAt("001"), f.readme)
}

func defaults() validate.SubSpecOptions { return validate.DefaultSubSpecOptions() }

func TestSubSpecs_NoSubSpecsPasses(t *testing.T) {
	f := newFixture("# Spec\n", map[string]string{"notes.txt": "not markdown"})
	r := f.validate(defaults())
	assertPassed(t, r, true)
	if len(r.Warnings)+len(r.Errors) != 0 {
		t.Errorf("got %+v, want no issues", r)
	}
}

// ─── Token budget ───────────────────────────────────────────────────────────

func TestSubSpecs_TokenTiers(t *testing.T) {
	tests := []struct {
		name         string
		size         int
		wantWarnings int
		wantErrors   int
		wantPassed   bool
		wantMsg      []string
	}{
		{"below good threshold", 1900, 0, 0, true, nil},
		{"above target", 2500, 1, 0, true, []string{"tokens", "target"}},
		{"approaching threshold", 4000, 1, 0, true, []string{"tokens"}},
		{"over threshold", 5200, 0, 1, false, []string{"tokens", "threshold"}},
		{"exactly at threshold", 5000, 0, 1, false, []string{"tokens", "threshold"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture("# Spec\n\n[design](./DESIGN.md)\n", map[string]string{
				"DESIGN.md": strings.Repeat("x", tt.size),
			})
			r := f.validate(defaults())

			assertPassed(t, r, tt.wantPassed)
			if len(r.Warnings) != tt.wantWarnings || len(r.Errors) != tt.wantErrors {
				t.Fatalf("warnings=%+v errors=%+v", r.Warnings, r.Errors)
			}
			issues := r.Warnings
			if tt.wantErrors > 0 {
				issues = r.Errors
			}
			if tt.wantMsg != nil && countContaining(issues, tt.wantMsg...) != 1 {
				t.Errorf("issues %+v should mention %v", issues, tt.wantMsg)
			}
		})
	}
}

func TestSubSpecs_CustomThresholds(t *testing.T) {
	f := newFixture("# Spec\n[d](DESIGN.md)\n", map[string]string{"DESIGN.md": strings.Repeat("x", 150)})
	r := f.validate(validate.SubSpecOptions{GoodThreshold: 50, WarningThreshold: 100, ErrorThreshold: 120})
	if len(r.Errors) != 1 || !strings.Contains(r.Errors[0].Message, "120-token threshold") {
		t.Errorf("errors = %+v", r.Errors)
	}
}

func TestSubSpecValidator_Classify(t *testing.T) {
	v := validate.NewSubSpecValidator(newMemStorage(), validate.SubSpecOptions{})
	for count, want := range map[int]validate.Tier{
		0:    validate.TierGood,
		1999: validate.TierGood,
		2000: validate.TierAboveTarget,
		3499: validate.TierAboveTarget,
		3500: validate.TierApproaching,
		4999: validate.TierApproaching,
		5000: validate.TierOver,
	} {
		if got := v.Classify(count); got != want {
			t.Errorf("Classify(%d) = %s, want %s", count, got, want)
		}
	}
}

func TestSubSpecValidator_Measure(t *testing.T) {
	f := newFixture("# Spec\n", map[string]string{
		"API.md":    strings.Repeat("x", 10),
		"DESIGN.md": strings.Repeat("x", 3600),
	})
	f.store.unreadable["/specs/001/API.md"] = true

	v := validate.NewSubSpecValidator(f.store, validate.SubSpecOptions{Estimator: lengthEstimator})
	got := v.Measure(context.Background(), specAt("001"))
	want := []validate.SubSpecSize{{Name: "DESIGN.md", Tokens: 3600, Tier: validate.TierApproaching}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Measure() mismatch (-want +got):\n%s", diff)
	}
}

// ─── Orphans ────────────────────────────────────────────────────────────────

func TestSubSpecs_Orphan(t *testing.T) {
	tests := []struct {
		name       string
		readme     string
		wantOrphan bool
	}{
		{"not linked", "# Spec\n\nSee the design doc.\n", true},
		{"linked with ./", "# Spec\n\n[Design](./DESIGN.md)\n", false},
		{"linked without ./", "# Spec\n\n[Design](DESIGN.md)\n", false},
		{"linked with anchor", "# Spec\n\n[Design](DESIGN.md#storage)\n", false},
		{"wrong case link", "# Spec\n\n[Design](design.md)\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.readme, map[string]string{"DESIGN.md": "# Design\n"})
			r := f.validate(defaults())
			got := countContaining(r.Warnings, "Orphaned sub-spec", "DESIGN.md")
			if tt.wantOrphan && got != 1 {
				t.Errorf("warnings = %+v, want one orphan warning", r.Warnings)
			}
			if !tt.wantOrphan && got != 0 {
				t.Errorf("warnings = %+v, want no orphan warning", r.Warnings)
			}
			assertPassed(t, r, true)
		})
	}
}

func TestSubSpecs_UppercaseExtension(t *testing.T) {
	f := newFixture("# Spec\n\n[Notes](./NOTES.MD)\n", map[string]string{
		"NOTES.MD": "# Notes\n\nSee [gone](./GONE.MD).\n",
	})
	r := f.validate(defaults())
	assertPassed(t, r, true)
	if n := countContaining(r.Warnings, "Orphaned sub-spec"); n != 0 {
		t.Errorf("warnings = %+v, want no orphan warning for a linked .MD file", r.Warnings)
	}
	if n := countContaining(r.Warnings, "Broken reference", "GONE.MD"); n != 1 {
		t.Errorf("warnings = %+v, want one broken reference to GONE.MD", r.Warnings)
	}
}

// ─── Cross-references ───────────────────────────────────────────────────────

func crossRefFixture() *fixture {
	return newFixture("# Spec\n[d](DESIGN.md) [t](TESTING.md)\n", map[string]string{
		"DESIGN.md": "# Design\n\nSee [testing](./TESTING.md), [home](README.md), [home again](readme.md)\n" +
			"and [gone](./MISSING.md) plus [gone again](MISSING.md).\n",
		"TESTING.md": "# Testing\n",
	})
}

func TestSubSpecs_BrokenReference(t *testing.T) {
	r := crossRefFixture().validate(defaults())
	assertPassed(t, r, true)
	if len(r.Warnings) != 1 || countContaining(r.Warnings, "Broken reference", "MISSING.md") != 1 {
		t.Errorf("warnings = %+v, want one broken reference to MISSING.md", r.Warnings)
	}
	if !strings.Contains(r.Warnings[0].Suggestion, "line 4") {
		t.Errorf("suggestion %q should point at the first offending line", r.Warnings[0].Suggestion)
	}
}

func TestSubSpecs_CrossReferenceCheckDisabled(t *testing.T) {
	opts := defaults()
	opts.CheckCrossReferences = false
	r := crossRefFixture().validate(opts)
	if n := countContaining(r.Warnings, "Broken reference"); n != 0 {
		t.Errorf("got %d broken reference warnings with checking disabled", n)
	}
	if len(r.Warnings) != 0 {
		t.Errorf("warnings = %+v, want none", r.Warnings)
	}
}

// ─── Naming ─────────────────────────────────────────────────────────────────

func TestSubSpecs_Naming(t *testing.T) {
	f := newFixture("# Spec\n[a](design.md) [b](TESTING.md) [c](Api_v2.md) [d](ADR-001.md)\n", map[string]string{
		"design.md":  "# d\n",
		"TESTING.md": "# t\n",
		"Api_v2.md":  "# a\n",
		"ADR-001.md": "# adr\n",
	})
	r := f.validate(defaults())
	assertPassed(t, r, true)

	if n := countContaining(r.Warnings, "should be uppercase"); n != 2 {
		t.Fatalf("warnings = %+v, want two naming warnings", r.Warnings)
	}
	suggestions := map[string]string{}
	for _, w := range r.Warnings {
		suggestions[w.Message] = w.Suggestion
	}
	if s := suggestions["Sub-spec filename design.md should be uppercase"]; !strings.Contains(s, "DESIGN.md") {
		t.Errorf("design.md suggestion = %q, want DESIGN.md", s)
	}
	if s := suggestions["Sub-spec filename Api_v2.md should be uppercase"]; !strings.Contains(s, "API_V2.md") {
		t.Errorf("Api_v2.md suggestion = %q, want API_V2.md", s)
	}
	if countContaining(r.Warnings, "TESTING.md") != 0 || countContaining(r.Warnings, "ADR-001.md") != 0 {
		t.Errorf("uppercase files should not warn: %+v", r.Warnings)
	}
}

// ─── Degradation ────────────────────────────────────────────────────────────

func TestSubSpecs_ListingFailureIsSilent(t *testing.T) {
	f := newFixture("# Spec\n", map[string]string{"DESIGN.md": strings.Repeat("x", 9000)})
	f.store.listErr = errListing
	r := f.validate(defaults())
	assertPassed(t, r, true)
	if len(r.Warnings)+len(r.Errors) != 0 {
		t.Errorf("got %+v, want no issues", r)
	}
}

func TestSubSpecs_UnreadableSubSpecSkipsContentChecks(t *testing.T) {
	f := newFixture("# Spec\n", map[string]string{"DESIGN.md": strings.Repeat("x", 9000) + "[x](NOPE.md)"})
	f.store.unreadable["/specs/001/DESIGN.md"] = true
	r := f.validate(defaults())

	assertPassed(t, r, true)
	if len(r.Warnings) != 1 || countContaining(r.Warnings, "Orphaned sub-spec") != 1 {
		t.Errorf("warnings = %+v, want only the orphan warning", r.Warnings)
	}
}
