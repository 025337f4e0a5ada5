// Package validate scores spec documents: structure (title, required
// sections, empty and duplicate headings) and sub-specs (naming, token
// budget, orphans, cross-references).
//
// Validators never return Go errors. Problems with the spec become
// issues in a Result; I/O failures while looking around the spec
// directory degrade to "nothing found".
package validate

// Issue is a single finding with an optional fix hint.
type Issue struct {
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Result is the outcome of one validator over one spec.
// Errors block compliance; warnings are advisory.
type Result struct {
	Passed   bool    `json:"passed"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// NewResult returns an empty, passing result.
func NewResult() *Result {
	return &Result{Passed: true, Errors: []Issue{}, Warnings: []Issue{}}
}

// AddError records a blocking issue. Passed becomes false.
func (r *Result) AddError(message, suggestion string) {
	r.Errors = append(r.Errors, Issue{Message: message, Suggestion: suggestion})
	r.Passed = false
}

// AddWarning records an advisory issue.
func (r *Result) AddWarning(message, suggestion string) {
	r.Warnings = append(r.Warnings, Issue{Message: message, Suggestion: suggestion})
}

// Merge appends other's issues to r.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Passed = len(r.Errors) == 0
}
