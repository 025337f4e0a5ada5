package configlang

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Encode renders v in the configuration grammar with 2-space indentation.
//
// Nested empty mappings and empty sequences have no block representation
// and are written as null. A root mapping with no entries encodes to the
// empty string, which Parse reads back as an empty mapping.
func Encode(v Value) string {
	var b strings.Builder
	switch x := v.(type) {
	case *Mapping:
		encodeMapping(&b, x, 0)
	case Sequence:
		if len(x) == 0 {
			b.WriteString("~\n")
		} else {
			encodeSequence(&b, x, 0)
		}
	default:
		b.WriteString(encodeScalar(v))
		b.WriteByte('\n')
	}
	return b.String()
}

func encodeMapping(b *strings.Builder, m *Mapping, indent int) {
	for _, e := range m.entries {
		writeIndent(b, indent)
		b.WriteString(encodeKey(e.Key))
		b.WriteByte(':')
		encodeNested(b, e.Value, indent)
	}
}

func encodeSequence(b *strings.Builder, seq Sequence, indent int) {
	for _, item := range seq {
		writeIndent(b, indent)
		b.WriteByte('-')

		m, isMapping := item.(*Mapping)
		if isMapping && m.Len() > 0 {
			// The first entry shares the dash line; the rest continue
			// at the item's content column.
			first := m.entries[0]
			b.WriteByte(' ')
			b.WriteString(encodeKey(first.Key))
			b.WriteByte(':')
			encodeNested(b, first.Value, indent+IndentUnit)
			for _, e := range m.entries[1:] {
				writeIndent(b, indent+IndentUnit)
				b.WriteString(encodeKey(e.Key))
				b.WriteByte(':')
				encodeNested(b, e.Value, indent+IndentUnit)
			}
			continue
		}

		if isBlock(item) {
			b.WriteByte('\n')
			encodeBlock(b, item, indent+IndentUnit)
			continue
		}
		b.WriteByte(' ')
		b.WriteString(encodeScalar(item))
		b.WriteByte('\n')
	}
}

// encodeNested writes the value of a `key:` that has already been
// emitted at indent.
func encodeNested(b *strings.Builder, v Value, indent int) {
	if isBlock(v) {
		b.WriteByte('\n')
		encodeBlock(b, v, indent+IndentUnit)
		return
	}
	b.WriteByte(' ')
	b.WriteString(encodeScalar(v))
	b.WriteByte('\n')
}

func encodeBlock(b *strings.Builder, v Value, indent int) {
	switch x := v.(type) {
	case *Mapping:
		encodeMapping(b, x, indent)
	case Sequence:
		encodeSequence(b, x, indent)
	}
}

// isBlock reports whether v needs its own indented lines.
func isBlock(v Value) bool {
	switch x := v.(type) {
	case *Mapping:
		return x.Len() > 0
	case Sequence:
		return len(x) > 0
	}
	return false
}

func encodeScalar(v Value) string {
	switch x := v.(type) {
	case nil, Null, *Mapping, Sequence:
		return "~"
	case Bool:
		if x {
			return "true"
		}
		return "false"
	case Number:
		return x.String()
	case String:
		s := string(x)
		if needsQuoting(s) {
			return quote(s)
		}
		return s
	}
	return "~"
}

func encodeKey(key string) string {
	if key == "" || strings.ContainsAny(key, ":#\"'") || needsQuoting(key) {
		return quote(key)
	}
	return key
}

// needsQuoting reports whether a plain rendering of s would not decode
// back to the same string in every position it can appear.
func needsQuoting(s string) bool {
	if s == "" || s != strings.TrimSpace(s) {
		return true
	}
	if strings.ContainsAny(s, "\n\r:") {
		return true
	}
	switch s[0] {
	case '-', '#', '"', '\'':
		return true
	}
	if _, ok := ParseScalar(s).(String); !ok {
		return true
	}
	return false
}

func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return `""`
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func writeIndent(b *strings.Builder, n int) {
	b.WriteString(strings.Repeat(" ", n))
}
