package textutil

import (
	"strings"
	"unicode/utf8"
)

// fingerprintStopwords are dropped from topic fingerprints. The list is part
// of the matching contract: changing it changes Stage B outcomes.
var fingerprintStopwords = NewSet(
	"the", "and", "for", "with", "from", "that", "this", "will",
	"has", "have", "are", "was", "were", "been", "being", "their",
	"into", "over", "about", "between", "through", "after", "before",
	"during", "without", "under", "within", "against", "along",
	"could", "would", "should", "also", "more", "most", "than",
	"2024", "2025", "2026", "2027",
	"first", "last", "says", "show", "shows", "finds", "report",
	"reports", "study", "year", "years", "according", "among",
	"based", "global", "world", "major",
)

const minFingerprintWordLen = 4

// TopicFingerprint returns the significant words of a title plus its
// explicit keyword phrases. Words shorter than four characters and stopwords
// are skipped.
func TopicFingerprint(title string, keywords []string) Set {
	fp := make(Set)
	addFingerprintWords(fp, NormalizeText(title))
	for _, kw := range keywords {
		addFingerprintWords(fp, NormalizeText(kw))
	}
	return fp
}

func addFingerprintWords(dst Set, normalized string) {
	for _, word := range strings.Fields(normalized) {
		if utf8.RuneCountInString(word) < minFingerprintWordLen {
			continue
		}
		if fingerprintStopwords.Has(word) {
			continue
		}
		dst.Add(word)
	}
}

// keywordTrimChars are stripped from title words when building keyword sets.
const keywordTrimChars = ".,;:!?()[]{}\"'"

// KeywordSet merges explicit keywords with the words of a title into the
// lowercase set used for thread matching. Title words need at least three
// characters after punctuation is trimmed.
func KeywordSet(title string, keywords []string) Set {
	out := make(Set, len(keywords)+8)
	for _, kw := range keywords {
		out.Add(strings.TrimSpace(Lower(kw)))
	}
	for _, word := range strings.Fields(Lower(title)) {
		word = strings.Trim(word, keywordTrimChars)
		if utf8.RuneCountInString(word) > 2 {
			out.Add(word)
		}
	}
	return out
}
