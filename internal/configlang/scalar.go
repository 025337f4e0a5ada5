package configlang

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)

// ParseScalar decodes bare value text:
//
//	~ or null         -> Null
//	true or false     -> Bool
//	[+-]digits[.digits] -> Number
//	'single quoted'   -> String, with '' unescaped to '
//	"double quoted"   -> String, decoded as a JSON string literal
//
// Anything else is returned verbatim as a String.
func ParseScalar(text string) Value {
	text = strings.TrimSpace(text)
	switch text {
	case "~", "null":
		return Null{}
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}

	if numberPattern.MatchString(text) {
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return Number(f)
		}
	}

	if len(text) >= 2 {
		switch {
		case text[0] == '\'' && text[len(text)-1] == '\'':
			return String(strings.ReplaceAll(text[1:len(text)-1], "''", "'"))
		case text[0] == '"' && text[len(text)-1] == '"':
			var s string
			if err := json.Unmarshal([]byte(text), &s); err == nil {
				return String(s)
			}
			return String(text[1 : len(text)-1])
		}
	}

	return String(text)
}
