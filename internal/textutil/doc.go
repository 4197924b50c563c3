// Package textutil provides the text primitives behind signal matching:
// normalization, topic fingerprints, entity sets, and similarity metrics.
//
// The primary use cases are:
//   - Canonicalizing URLs and free text before comparison
//   - Deriving topic fingerprints and entity sets from a title plus keywords
//   - Scoring set overlap (overlap coefficient, Jaccard) and string similarity
//     (Jaro, Jaro-Winkler)
//
// Every function is pure and deterministic. Lowercasing goes through
// golang.org/x/text so non-ASCII titles fold the same way on every run.
package textutil
