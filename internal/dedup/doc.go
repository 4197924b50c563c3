// Package dedup implements the cross-day duplicate gate.
//
// Each new signal is compared against the retained history through a fixed
// four-stage cascade: exact normalized URL, topic fingerprint overlap, title
// similarity, and entity overlap. The first stage whose score clears its
// definite threshold decides the signal is a duplicate. Scores that only
// clear an uncertain threshold are carried forward, and the best of them
// becomes the verdict when no stage is definite. Uncertain signals always
// pass through so a reviewer can decide.
//
// Gate runs the cascade over a batch and produces a Report plus the Filtered
// pass-through set. RunFiles is the file-level entry point used by the CLI.
package dedup
