// Package evolution tracks how signals recur across daily scans.
//
// A workflow's thread index groups matched signals into threads. Each day's
// classified signals are matched against the index's live threads by title
// similarity and keyword overlap; a match appends an appearance and moves the
// thread through the evolution state machine (RECURRING, STRENGTHENING,
// WEAKENING, TRANSFORMED), while an unmatched signal opens a NEW thread.
// Threads that go quiet or grow too old are marked FADED and are never
// matched again.
//
// Store owns the on-disk index: it takes an exclusive lock, writes a dated
// backup before any mutation and saves atomically. Tracker drives one run and
// emits the evolution map. Correlate compares indexes of different workflows.
package evolution
