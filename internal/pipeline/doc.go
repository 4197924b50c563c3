// Package pipeline defines the run-scoped plumbing shared by the dedup gate
// and the evolution tracker.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, workflow names, and stage
//     names so log lines from one invocation can be correlated.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (bad configuration vs corrupt input vs transient I/O) and map
//     them to CLI exit codes.
package pipeline
