package validate

import (
	"context"
	"fmt"
	"time"

	"github.com/HendryAvila/specgate/internal/specs"
)

// Validator names used when findings are flattened.
const (
	ValidatorStructure = "structure"
	ValidatorSubSpecs  = "subspecs"
)

// Severity of a flattened finding.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// DefaultConcurrency is the number of specs validated in parallel.
const DefaultConcurrency = 4

// SpecReport is the combined outcome of both validators for one spec.
type SpecReport struct {
	Spec      *specs.Spec   `json:"spec"`
	Structure *Result       `json:"structure"`
	SubSpecs  *Result       `json:"subSpecs"`
	Passed    bool          `json:"passed"`
	Duration  time.Duration `json:"durationNs"`
}

// Finding is an issue tagged with where it came from.
type Finding struct {
	Severity  string `json:"severity"`
	Validator string `json:"validator"`
	Issue
}

// ErrorCount returns the number of blocking issues.
func (r *SpecReport) ErrorCount() int {
	return len(r.Structure.Errors) + len(r.SubSpecs.Errors)
}

// WarningCount returns the number of advisory issues.
func (r *SpecReport) WarningCount() int {
	return len(r.Structure.Warnings) + len(r.SubSpecs.Warnings)
}

// Findings flattens both results, errors first, structure before
// sub-specs.
func (r *SpecReport) Findings() []Finding {
	var out []Finding
	add := func(severity, validator string, issues []Issue) {
		for _, is := range issues {
			out = append(out, Finding{Severity: severity, Validator: validator, Issue: is})
		}
	}
	add(SeverityError, ValidatorStructure, r.Structure.Errors)
	add(SeverityError, ValidatorSubSpecs, r.SubSpecs.Errors)
	add(SeverityWarning, ValidatorStructure, r.Structure.Warnings)
	add(SeverityWarning, ValidatorSubSpecs, r.SubSpecs.Warnings)
	return out
}

// Report aggregates many spec reports.
type Report struct {
	Specs        []*SpecReport `json:"specs"`
	Passed       bool          `json:"passed"`
	ErrorCount   int           `json:"errorCount"`
	WarningCount int           `json:"warningCount"`

	// Incomplete is set when the run was cancelled before every spec was
	// validated. An incomplete report never passes.
	Incomplete bool `json:"incomplete,omitempty"`
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Structure   StructureOptions
	SubSpecs    SubSpecOptions
	Concurrency int
}

// Runner applies both validators to specs.
type Runner struct {
	storage     specs.Storage
	structure   *StructureValidator
	subspecs    *SubSpecValidator
	concurrency int
}

// NewRunner creates a Runner reading through storage.
func NewRunner(storage specs.Storage, opts RunnerOptions) *Runner {
	n := opts.Concurrency
	if n <= 0 {
		n = DefaultConcurrency
	}
	return &Runner{
		storage:     storage,
		structure:   NewStructureValidator(opts.Structure),
		subspecs:    NewSubSpecValidator(storage, opts.SubSpecs),
		concurrency: n,
	}
}

// SubSpecs exposes the sub-spec validator for size reporting.
func (r *Runner) SubSpecs() *SubSpecValidator { return r.subspecs }

// ValidateSpec runs both validators over spec. An unreadable primary
// document is reported as a single blocking error.
func (r *Runner) ValidateSpec(ctx context.Context, spec *specs.Spec) *SpecReport {
	start := time.Now()
	rep := &SpecReport{Spec: spec}

	raw, err := r.storage.ReadFile(ctx, spec.FilePath)
	if err != nil {
		rep.Structure = NewResult()
		rep.Structure.AddError(fmt.Sprintf("Failed to read %s", spec.PrimaryDocument()), err.Error())
		rep.SubSpecs = NewResult()
	} else {
		rep.Structure = r.structure.Validate(spec, raw)
		rep.SubSpecs = r.subspecs.Validate(ctx, spec, raw)
	}

	rep.Passed = rep.Structure.Passed && rep.SubSpecs.Passed
	rep.Duration = time.Since(start)
	return rep
}

// ValidateAll validates list with bounded concurrency. Reports keep the
// order of list. Specs not started before ctx is done are skipped and
// the report is marked incomplete.
func (r *Runner) ValidateAll(ctx context.Context, list []*specs.Spec) *Report {
	reports := make([]*SpecReport, len(list))
	sem := make(chan struct{}, r.concurrency)
	done := make(chan struct{}, len(list))

	started := 0
	for i, spec := range list {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		started++
		go func(i int, spec *specs.Spec) {
			defer func() {
				<-sem
				done <- struct{}{}
			}()
			reports[i] = r.ValidateSpec(ctx, spec)
		}(i, spec)
	}
	for range started {
		<-done
	}

	rep := NewReport(reports...)
	if started < len(list) || ctx.Err() != nil {
		rep.Incomplete = true
		rep.Passed = false
	}
	return rep
}

// NewReport aggregates spec reports, skipping nil entries.
func NewReport(reports ...*SpecReport) *Report {
	out := &Report{Specs: make([]*SpecReport, 0, len(reports)), Passed: true}
	for _, rep := range reports {
		if rep == nil {
			continue
		}
		out.Specs = append(out.Specs, rep)
		out.ErrorCount += rep.ErrorCount()
		out.WarningCount += rep.WarningCount()
		if !rep.Passed {
			out.Passed = false
		}
	}
	return out
}
