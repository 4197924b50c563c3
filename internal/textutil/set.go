package textutil

import "sort"

// Set is an unordered collection of normalized tokens or phrases.
type Set map[string]struct{}

// NewSet builds a set from the given values, skipping empty strings.
func NewSet(values ...string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add inserts value unless it is empty.
func (s Set) Add(value string) {
	if value == "" {
		return
	}
	s[value] = struct{}{}
}

// Has reports whether value is present.
func (s Set) Has(value string) bool {
	_, ok := s[value]
	return ok
}

// Union adds every element of other to s.
func (s Set) Union(other Set) {
	for v := range other {
		s[v] = struct{}{}
	}
}

// Sorted returns the elements in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func intersectionSize(a, b Set) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for v := range a {
		if b.Has(v) {
			n++
		}
	}
	return n
}
