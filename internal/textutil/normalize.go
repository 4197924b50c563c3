package textutil

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	nonWordPattern    = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s]+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Lower folds text to lowercase after NFC composition.
func Lower(text string) string {
	if text == "" {
		return ""
	}
	return cases.Lower(language.Und).String(norm.NFC.String(text))
}

// NormalizeText lowercases text, drops punctuation and collapses whitespace.
func NormalizeText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	lowered := Lower(text)
	stripped := nonWordPattern.ReplaceAllString(lowered, "")
	collapsed := whitespacePattern.ReplaceAllString(stripped, " ")
	return strings.TrimSpace(collapsed)
}

// NormalizeURL reduces a URL to lowercase host plus path. Scheme, a leading
// "www.", query, fragment, and trailing slashes are dropped so http and https
// variants of one resource compare equal. The result is stable under repeated
// application.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	target := raw
	if !strings.Contains(target, "://") && !strings.HasPrefix(target, "//") {
		target = "//" + target
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return normalizeUnparsedURL(raw)
	}
	return joinHostPath(parsed.Host, parsed.EscapedPath())
}

// normalizeUnparsedURL applies the same reduction by hand to URLs that
// net/url rejects, such as a non-numeric port.
func normalizeUnparsedURL(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	if i := strings.Index(raw, "://"); i >= 0 {
		raw = raw[i+3:]
	}
	raw = strings.TrimPrefix(raw, "//")
	host, path := raw, ""
	if i := strings.Index(raw, "/"); i >= 0 {
		host, path = raw[:i], raw[i:]
	}
	return joinHostPath(host, path)
}

func joinHostPath(host, path string) string {
	host = strings.ToLower(host)
	for strings.HasPrefix(host, "www.") {
		host = strings.TrimPrefix(host, "www.")
	}
	return host + strings.TrimRight(path, "/")
}
