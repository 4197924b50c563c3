package textutil

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var entityStopwords = NewSet(
	"the", "and", "for", "with", "from", "that", "this", "will", "new",
	"has", "have", "are", "was", "were", "not", "its", "but", "all",
	"can", "may", "how", "why", "what", "when", "where", "who", "top",
	"key", "big", "use", "set", "get", "via", "per",
	"a", "an", "in", "on", "at", "to", "of", "by", "up",
	"report", "study", "analysis", "review", "update", "risk", "impact",
	"global", "world", "major", "says", "finds", "shows",
)

var (
	acronymPattern     = regexp.MustCompile(`\b[A-Z][A-Z0-9]{1,}(?:-[A-Z0-9]+)*\b`)
	properNounPattern  = regexp.MustCompile(`[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+`)
	entityStripPattern = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_]+`)
)

const (
	minEntityPhraseLen  = 4
	minEntityWordLen    = 3
	minEntityKeywordLen = 3
)

// ExtractEntities collects acronyms (NATO, RSA-2048), capitalized proper-noun
// spans, capitalized title words, and explicit keywords, all lowercased.
// Capitalized stopwords such as "The" or "Global" never qualify.
func ExtractEntities(title string, keywords []string) Set {
	entities := make(Set)

	for _, acronym := range acronymPattern.FindAllString(title, -1) {
		entities.Add(Lower(acronym))
	}

	for _, phrase := range properNounPattern.FindAllString(title, -1) {
		lowered := Lower(phrase)
		if entityStopwords.Has(lowered) || utf8.RuneCountInString(lowered) < minEntityPhraseLen {
			continue
		}
		entities.Add(lowered)
	}

	for _, word := range strings.Fields(title) {
		clean := entityStripPattern.ReplaceAllString(word, "")
		if clean == "" {
			continue
		}
		first, _ := utf8.DecodeRuneInString(clean)
		if !unicode.IsUpper(first) || utf8.RuneCountInString(clean) < minEntityWordLen {
			continue
		}
		lowered := Lower(clean)
		if entityStopwords.Has(lowered) {
			continue
		}
		entities.Add(lowered)
	}

	for _, kw := range keywords {
		kw = strings.TrimSpace(Lower(kw))
		if utf8.RuneCountInString(kw) >= minEntityKeywordLen {
			entities.Add(kw)
		}
	}

	return entities
}
