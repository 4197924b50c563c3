package textutil

import (
	"strings"
	"unicode"
)

const unnamedWorkflow = "unknown"

// SanitizeToken reduces a workflow name to the token used in per-workflow
// file names such as the evolution index. ASCII letters are lowercased, digits,
// hyphens and underscores survive, and every other rune becomes an
// underscore. Leading and trailing separators are dropped.
func SanitizeToken(workflow string) string {
	token := strings.Map(func(r rune) rune {
		switch {
		case r > unicode.MaxASCII:
			return '_'
		case unicode.IsLetter(r):
			return unicode.ToLower(r)
		case unicode.IsDigit(r), r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(workflow))
	token = strings.Trim(token, "_-")
	if token == "" {
		return unnamedWorkflow
	}
	return token
}
