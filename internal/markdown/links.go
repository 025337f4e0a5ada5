package markdown

import "regexp"

// Link is a markdown link to a sibling markdown file.
type Link struct {
	Label  string
	Target string // file name, without the ./ prefix or #anchor
	Line   int    // 1-based
}

// linkPattern matches [label](NAME.md) and [label](./NAME.md), with an
// optional #anchor. The extension matches in any case, like sub-spec
// discovery. Targets in other directories do not match.
var linkPattern = regexp.MustCompile(`\[([^\]]*)\]\((?:\./)?([^)\s/#]+\.(?i:md))(?:#[^)\s]*)?\)`)

// ExtractLinks returns the sibling markdown links in text, in order.
// Links inside fenced code are included; a reference in an example is
// still a reference.
func ExtractLinks(text string) []Link {
	var links []Link
	for i, line := range Lines(text) {
		for _, m := range linkPattern.FindAllStringSubmatch(line, -1) {
			links = append(links, Link{Label: m[1], Target: m[2], Line: i + 1})
		}
	}
	return links
}

// LinkTargets returns the set of distinct link targets in text.
func LinkTargets(text string) map[string]bool {
	targets := make(map[string]bool)
	for _, l := range ExtractLinks(text) {
		targets[l.Target] = true
	}
	return targets
}
