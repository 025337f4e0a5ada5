package configlang

import (
	"errors"
	"fmt"
	"strings"
)

// IndentUnit is the number of columns each nesting level adds.
const IndentUnit = 2

// ErrSyntax is the sentinel wrapped by every SyntaxError.
var ErrSyntax = errors.New("configlang: syntax error")

// SyntaxError describes malformed input. Line is 1-based; 0 means the
// error is not tied to a particular line.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("configlang: line %d: %s", e.Line, e.Msg)
	}
	return "configlang: " + e.Msg
}

// Unwrap lets errors.Is(err, ErrSyntax) match any SyntaxError.
func (e *SyntaxError) Unwrap() error { return ErrSyntax }

func syntaxErrorf(line int, format string, args ...any) error {
	return &SyntaxError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// token is one significant source line.
type token struct {
	indent int
	text   string // trimmed content
	line   int    // 1-based source line
}

// tokenize drops blank and comment lines and measures indentation.
func tokenize(source string) ([]token, error) {
	lines := strings.Split(source, "\n")
	toks := make([]token, 0, len(lines))
	for i, raw := range lines {
		raw = strings.TrimRight(raw, "\r")
		text := strings.TrimSpace(raw)
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		indent := len(raw) - len(strings.TrimLeft(raw, " \t"))
		if strings.ContainsRune(raw[:indent], '\t') {
			return nil, syntaxErrorf(i+1, "tabs are not allowed in indentation")
		}
		if indent%IndentUnit != 0 {
			return nil, syntaxErrorf(i+1, "indentation of %d is not a multiple of %d", indent, IndentUnit)
		}
		toks = append(toks, token{indent: indent, text: text, line: i + 1})
	}
	return toks, nil
}

// Parse decodes a configuration document. An empty document (only blank
// lines and comments) yields an empty *Mapping. On error no partial
// result is returned.
func Parse(source string) (Value, error) {
	toks, err := tokenize(source)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return NewMapping(), nil
	}

	p := &parser{toks: toks}
	v, next, err := p.parseValue(0, 0)
	if err != nil {
		return nil, err
	}
	if next < len(toks) {
		t := toks[next]
		return nil, syntaxErrorf(t.line, "unexpected content %q at indentation %d", t.text, t.indent)
	}
	return v, nil
}

// ParseMapping is Parse for documents whose root must be a mapping.
func ParseMapping(source string) (*Mapping, error) {
	v, err := Parse(source)
	if err != nil {
		return nil, err
	}
	m, ok := v.(*Mapping)
	if !ok {
		return nil, &SyntaxError{Msg: fmt.Sprintf("document root is a %s, expected a mapping", v.Kind())}
	}
	return m, nil
}

// parser walks the token slice with an explicit cursor. Every parse
// method takes the position to start from and returns the position of
// the first token it did not consume.
type parser struct {
	toks []token
}

// parseValue parses whatever structure begins at toks[i], which must sit
// exactly at indent. A token at a shallower indent means the value is
// absent.
func (p *parser) parseValue(i, indent int) (Value, int, error) {
	if i >= len(p.toks) {
		return Null{}, i, nil
	}
	t := p.toks[i]
	if t.indent < indent {
		return Null{}, i, nil
	}
	if t.indent > indent {
		return nil, i, syntaxErrorf(t.line, "unexpected indentation %d, expected %d", t.indent, indent)
	}
	if isSequenceItem(t.text) {
		return p.parseSequence(i, indent)
	}
	m := NewMapping()
	next, err := p.parseEntries(m, i, indent)
	if err != nil {
		return nil, i, err
	}
	return m, next, nil
}

// parseEntries consumes `key: value` lines at exactly indent into m.
// It stops at a shallower token or at a sequence item at the same
// indent; the caller decides whether what follows is legal.
func (p *parser) parseEntries(m *Mapping, i, indent int) (int, error) {
	for i < len(p.toks) {
		t := p.toks[i]
		if t.indent < indent {
			break
		}
		if t.indent > indent {
			return i, syntaxErrorf(t.line, "unexpected indentation %d, expected %d", t.indent, indent)
		}
		if isSequenceItem(t.text) {
			break
		}
		next, err := p.parseEntry(m, t, i+1, indent)
		if err != nil {
			return i, err
		}
		i = next
	}
	return i, nil
}

// parseEntry decodes one `key: value` token whose nested content, if
// any, starts at toks[i] one level deeper than indent.
func (p *parser) parseEntry(m *Mapping, t token, i, indent int) (int, error) {
	key, rest, err := splitEntry(t)
	if err != nil {
		return i, err
	}
	if m.Has(key) {
		return i, syntaxErrorf(t.line, "duplicate key %q", key)
	}

	if rest != "" {
		m.Set(key, ParseScalar(rest))
		return i, nil
	}

	v, next, err := p.parseValue(i, indent+IndentUnit)
	if err != nil {
		return i, err
	}
	m.Set(key, v)
	return next, nil
}

// parseSequence consumes `- item` lines at exactly indent.
func (p *parser) parseSequence(i, indent int) (Value, int, error) {
	seq := Sequence{}
	for i < len(p.toks) {
		t := p.toks[i]
		if t.indent != indent || !isSequenceItem(t.text) {
			if t.indent > indent {
				return nil, i, syntaxErrorf(t.line, "unexpected indentation %d, expected %d", t.indent, indent)
			}
			break
		}
		rest := strings.TrimSpace(strings.TrimPrefix(t.text, "-"))
		i++

		switch {
		case rest == "":
			v, next, err := p.parseValue(i, indent+IndentUnit)
			if err != nil {
				return nil, i, err
			}
			seq = append(seq, v)
			i = next

		case isInlineEntry(rest):
			// `- key: value` opens an object whose remaining keys sit
			// at the item's content column.
			obj := NewMapping()
			first := token{indent: indent + IndentUnit, text: rest, line: t.line}
			next, err := p.parseEntry(obj, first, i, indent+IndentUnit)
			if err != nil {
				return nil, i, err
			}
			next, err = p.parseEntries(obj, next, indent+IndentUnit)
			if err != nil {
				return nil, i, err
			}
			seq = append(seq, obj)
			i = next

		default:
			seq = append(seq, ParseScalar(rest))
		}
	}
	return seq, i, nil
}

// isSequenceItem reports whether trimmed line text starts a list item.
// A bare "-" is an item whose value is nested below it.
func isSequenceItem(text string) bool {
	return text == "-" || strings.HasPrefix(text, "- ")
}

// isInlineEntry reports whether a list item's remainder is a `key: value`
// pair rather than a scalar. A quoted remainder is a key only when a colon
// follows the closing quote.
func isInlineEntry(rest string) bool {
	if end := quotedPrefixLen(rest); end > 0 {
		return strings.HasPrefix(strings.TrimSpace(rest[end:]), ":")
	}
	if strings.HasPrefix(rest, `"`) || strings.HasPrefix(rest, "'") {
		return false
	}
	return strings.Contains(rest, ":")
}

// splitEntry splits a mapping line on its first colon. A quoted key may
// itself contain colons; the separator is the first colon after it.
func splitEntry(t token) (key, rest string, err error) {
	start := 0
	if end := quotedPrefixLen(t.text); end > 0 {
		start = end
	}
	idx := strings.IndexByte(t.text[start:], ':')
	if idx < 0 {
		return "", "", syntaxErrorf(t.line, "expected \"key: value\", found %q", t.text)
	}
	idx += start

	key = strings.TrimSpace(t.text[:idx])
	if key == "" {
		return "", "", syntaxErrorf(t.line, "empty key")
	}
	if start > 0 {
		if s, ok := ParseScalar(key).(String); ok {
			key = string(s)
		}
	}
	return key, strings.TrimSpace(t.text[idx+1:]), nil
}

// quotedPrefixLen returns the length of a leading quoted string in s,
// including both quotes, or 0 if s does not start with a closed quote.
func quotedPrefixLen(s string) int {
	if s == "" {
		return 0
	}
	switch s[0] {
	case '"':
		for i := 1; i < len(s); i++ {
			switch s[i] {
			case '\\':
				i++
			case '"':
				return i + 1
			}
		}
	case '\'':
		for i := 1; i < len(s); i++ {
			if s[i] != '\'' {
				continue
			}
			if i+1 < len(s) && s[i+1] == '\'' {
				i++
				continue
			}
			return i + 1
		}
	}
	return 0
}
