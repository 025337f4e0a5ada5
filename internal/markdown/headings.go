// Package markdown holds the line-oriented markdown helpers the
// validators depend on: heading extraction, frontmatter splitting and
// sub-spec link scanning, plus a goldmark-backed document summary.
//
// None of these aim at full CommonMark semantics. They accept the narrow
// markdown that spec documents are written in.
package markdown

import (
	"regexp"
	"strings"
)

// Heading is an ATX heading found outside fenced code.
type Heading struct {
	Level int    // 1..6
	Text  string // trimmed heading text
	Line  int    // 1-based line number within the scanned text
}

var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// ExtractHeadings returns the headings of body in document order. Lines
// inside ``` fences are skipped, and the fence lines themselves are never
// headings.
func ExtractHeadings(body string) []Heading {
	var headings []Heading
	inCodeBlock := false
	for i, line := range Lines(body) {
		if IsFence(line) {
			inCodeBlock = !inCodeBlock
			continue
		}
		if inCodeBlock {
			continue
		}
		m := headingPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		// A heading of only spaces is kept with empty text, matching
		// what counts as a title.
		headings = append(headings, Heading{
			Level: len(m[1]),
			Text:  strings.TrimSpace(m[2]),
			Line:  i + 1,
		})
	}
	return headings
}

// Lines splits text on newlines and strips a trailing carriage return
// from each line.
func Lines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// IsFence reports whether line opens or closes a fenced code block.
func IsFence(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "```")
}

// NextBoundary returns the index of the first heading after headings[i]
// whose level is at most headings[i].Level, or len(headings) if none.
func NextBoundary(headings []Heading, i int) int {
	level := headings[i].Level
	for j := i + 1; j < len(headings); j++ {
		if headings[j].Level <= level {
			return j
		}
	}
	return len(headings)
}

// HasSubsections reports whether a deeper heading appears between
// headings[i] and its boundary.
func HasSubsections(headings []Heading, i int) bool {
	end := NextBoundary(headings, i)
	for j := i + 1; j < end; j++ {
		if headings[j].Level > headings[i].Level {
			return true
		}
	}
	return false
}
