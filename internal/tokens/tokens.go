// Package tokens estimates how much of a model's context window a piece of
// text will occupy. Estimates are approximations; budgets built on them
// are calibrated against these functions, not against a real tokenizer.
package tokens

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// Estimator returns the approximate token count of text.
// Implementations return 0 for empty text and at least 1 otherwise.
type Estimator func(text string) int

// Words estimates 1.33 tokens per whitespace-separated word, which tracks
// English prose closely.
func Words(text string) int {
	if text == "" {
		return 0
	}
	tokens := int(float64(len(strings.Fields(text))) * 1.33)
	if tokens < 1 {
		return 1
	}
	return tokens
}

// Chars uses the chars/4 heuristic. It is O(1) and tends to overestimate
// code-heavy documents compared to Words.
func Chars(text string) int {
	n := len(text)
	if n == 0 {
		return 0
	}
	tokens := n / 4
	if tokens == 0 {
		return 1
	}
	return tokens
}

// Default is the estimator used when none is configured.
var Default Estimator = Words

var estimators = map[string]Estimator{
	"words": Words,
	"chars": Chars,
}

// Names lists the estimator names accepted by ByName.
func Names() []string {
	names := make([]string, 0, len(estimators))
	for name := range estimators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName returns the named estimator. An empty name selects Default.
func ByName(name string) (Estimator, error) {
	if name == "" {
		return Default, nil
	}
	e, ok := estimators[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown token estimator %q (valid: %s)", name, strings.Join(Names(), ", "))
	}
	return e, nil
}

// Format renders a token count with thousands separators, e.g. "3,512".
func Format(n int) string {
	return humanize.Comma(int64(n))
}

// Footer is the one-line token cost note appended to tool responses.
func Footer(n int) string {
	return fmt.Sprintf("\n📏 ~%s tokens", Format(n))
}
