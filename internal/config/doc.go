// Package config loads, normalizes, and validates envscan's TOML configuration.
//
// It exposes the Config struct with defaults, resolves the config file
// location (flag, ~/.config/envscan/config.toml, ./envscan.toml), expands
// user paths, and rejects out-of-range thresholds at load time instead of
// clamping them. Use Default() for tests and Load() for production wiring.
//
// Evolution tracker thresholds are not configured here: they come from the
// workflow registry YAML named by paths.registry_path (see internal/registry)
// and are resolved by the evolution package.
package config
