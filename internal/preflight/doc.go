// Package preflight provides readiness checks for the filesystem paths and
// inputs envscan depends on.
//
// `envscan doctor` runs RunAll and prints one line per check. Checks for
// optional inputs (registry, archive, per-workflow indexes) only run when the
// corresponding path is configured.
package preflight
