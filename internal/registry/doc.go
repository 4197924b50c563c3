// Package registry reads the workflow registry YAML that acts as the source
// of truth for signal evolution settings.
//
// Only the system.signal_evolution section is decoded. Every numeric field is
// a pointer so callers can tell "absent" from "zero" when layering explicit
// overrides and built-in defaults on top.
package registry
