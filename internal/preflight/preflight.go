package preflight

import (
	"context"
	"strings"

	"envscan/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Data directory (always checked)
	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckFreeSpace("Free space", cfg.Paths.DataDir, cfg.Preflight.MinFreeMiB))

	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if cfg.Evolution.IndexDir != "" {
		results = append(results, CheckDirectoryAccess("Index directory", cfg.Evolution.IndexDir))
	}
	if cfg.Evolution.BackupDir != "" && cfg.Evolution.BackupDir != cfg.Evolution.IndexDir {
		results = append(results, CheckDirectoryAccess("Backup directory", cfg.Evolution.BackupDir))
	}

	if strings.TrimSpace(cfg.Paths.RegistryPath) != "" {
		results = append(results, CheckRegistry(cfg.Paths.RegistryPath))
	}
	if strings.TrimSpace(cfg.Paths.ArchivePath) != "" {
		results = append(results, CheckArchive(ctx, cfg.Paths.ArchivePath))
	}
	if cfg.Evolution.IndexDir != "" {
		for _, wf := range cfg.Evolution.Workflows {
			results = append(results, CheckIndex(wf, cfg.IndexPath(wf)))
		}
	}

	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
