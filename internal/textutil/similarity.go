package textutil

import "strings"

// DefaultPrefixScale is the standard Winkler prefix weight.
const DefaultPrefixScale = 0.1

const maxWinklerPrefix = 4

// OverlapCoefficient returns |A∩B| / min(|A|,|B|), or 0 when either set is empty.
func OverlapCoefficient(a, b Set) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	return float64(intersectionSize(a, b)) / float64(smaller)
}

// Jaccard returns |A∩B| / |A∪B|, or 0 when either set is empty.
func Jaccard(a, b Set) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := intersectionSize(a, b)
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Jaro computes the Jaro similarity of two strings, comparing runes.
// Identical strings (including two empty strings) score 1.
func Jaro(a, b string) float64 {
	if a == b {
		return 1
	}
	s1, s2 := []rune(a), []rune(b)
	l1, l2 := len(s1), len(s2)
	if l1 == 0 || l2 == 0 {
		return 0
	}

	window := max(l1, l2)/2 - 1
	if window < 0 {
		window = 0
	}

	matched1 := make([]bool, l1)
	matched2 := make([]bool, l2)
	matches := 0
	for i := 0; i < l1; i++ {
		lo := max(0, i-window)
		hi := min(i+window+1, l2)
		for j := lo; j < hi; j++ {
			if matched2[j] || s1[i] != s2[j] {
				continue
			}
			matched1[i] = true
			matched2[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	halfTranspositions := 0
	k := 0
	for i := 0; i < l1; i++ {
		if !matched1[i] {
			continue
		}
		for !matched2[k] {
			k++
		}
		if s1[i] != s2[k] {
			halfTranspositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(halfTranspositions) / 2
	return (m/float64(l1) + m/float64(l2) + (m-t)/m) / 3
}

// JaroWinkler boosts the Jaro score by the length of the shared prefix (at
// most four runes). prefixScale values outside (0, 0.25] fall back to
// DefaultPrefixScale so the result stays within [0,1].
func JaroWinkler(a, b string, prefixScale float64) float64 {
	if prefixScale <= 0 || prefixScale > 0.25 {
		prefixScale = DefaultPrefixScale
	}
	jaro := Jaro(a, b)
	prefix := commonPrefixLen(a, b, maxWinklerPrefix)
	if prefix == 0 {
		return jaro
	}
	return jaro + float64(prefix)*prefixScale*(1-jaro)
}

func commonPrefixLen(a, b string, limit int) int {
	ra, rb := []rune(a), []rune(b)
	n := 0
	for n < limit && n < len(ra) && n < len(rb) && ra[n] == rb[n] {
		n++
	}
	return n
}

// TitleSimilarity is the case-insensitive Jaro-Winkler similarity of two
// titles. An empty title on either side scores 0.
func TitleSimilarity(a, b string) float64 {
	a = strings.TrimSpace(Lower(a))
	b = strings.TrimSpace(Lower(b))
	if a == "" || b == "" {
		return 0
	}
	return JaroWinkler(a, b, DefaultPrefixScale)
}
