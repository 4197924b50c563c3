// Package archive keeps every accepted signal in a SQLite database.
//
// The archive is the long-lived history corpus behind the dedup gate and the
// evolution tracker: `archive import` merges a day's filtered signals, the
// gate's previous-signals file is exported from it, and the tracker resolves
// missing titles through it. Rows are keyed by signal id and never replaced.
package archive
