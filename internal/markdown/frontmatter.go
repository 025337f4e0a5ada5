package markdown

import (
	"errors"
	"fmt"
	"strings"

	"github.com/HendryAvila/specgate/internal/configlang"
)

// ErrMalformedFrontmatter is returned when a document opens a frontmatter
// block that cannot be read.
var ErrMalformedFrontmatter = errors.New("malformed frontmatter")

const frontmatterDelimiter = "---"

// SplitFrontmatter separates a leading `---` delimited metadata block from
// the markdown body. A document without an opening delimiter has empty
// frontmatter and the whole text as body. A leading byte order mark is
// ignored.
//
// Errors wrap ErrMalformedFrontmatter and, for syntax problems,
// configlang.ErrSyntax.
func SplitFrontmatter(raw string) (*configlang.Mapping, string, error) {
	raw = strings.TrimPrefix(raw, "\ufeff")
	lines := Lines(raw)
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontmatterDelimiter {
		return configlang.NewMapping(), raw, nil
	}

	closing := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontmatterDelimiter {
			closing = i
			break
		}
	}
	if closing < 0 {
		return nil, "", fmt.Errorf("%w: no closing %q line", ErrMalformedFrontmatter, frontmatterDelimiter)
	}

	fm, err := configlang.ParseMapping(strings.Join(lines[1:closing], "\n"))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrMalformedFrontmatter, err)
	}
	return fm, strings.Join(lines[closing+1:], "\n"), nil
}
