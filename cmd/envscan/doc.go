// Command envscan runs the cross-day dedup gate and the signal evolution
// tracker of the environmental scanning pipeline.
//
// Subcommands:
//   - dedup: classify a day's signals against previous signals and write the
//     gate report plus the filtered pass-through set
//   - track: match classified signals to persistent threads and emit an
//     evolution map
//   - correlate: link similar threads across workflow indexes
//   - threads: inspect a workflow's thread index
//   - archive: import, export and summarize the SQLite signals archive
//   - config, doctor: configuration and environment checks
//
// Exit status is 0 on success (including gate WARN), 2 for configuration or
// validation errors and 1 for any other failure.
package main
