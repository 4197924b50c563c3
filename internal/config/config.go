package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"envscan/internal/textutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file locations.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	LogDir       string `toml:"log_dir"`
	ArchivePath  string `toml:"archive_path"`
	RegistryPath string `toml:"registry_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Dedup contains the cross-day dedup gate settings.
type Dedup struct {
	// LookbackDays limits history to signals collected within this many days.
	// Zero disables the filter.
	LookbackDays int `toml:"lookback_days"`
	// Enforce is "strict" (remove definite duplicates) or "lenient" (report only).
	Enforce string `toml:"enforce"`

	TopicDefinite   float64 `toml:"topic_definite"`
	TopicUncertain  float64 `toml:"topic_uncertain"`
	TitleDefinite   float64 `toml:"title_definite"`
	TitleUncertain  float64 `toml:"title_uncertain"`
	EntityDefinite  float64 `toml:"entity_definite"`
	EntityUncertain float64 `toml:"entity_uncertain"`
}

// Evolution contains file locations used by the evolution tracker.
type Evolution struct {
	IndexDir           string   `toml:"index_dir"`
	BackupDir          string   `toml:"backup_dir"` // Default: same as index_dir
	SignalsDBPath      string   `toml:"signals_db_path"`
	PriorityRankedPath string   `toml:"priority_ranked_path"`
	Workflows          []string `toml:"workflows"`
}

// Preflight contains thresholds for `envscan doctor`.
type Preflight struct {
	MinFreeMiB int `toml:"min_free_mib"`
}

// Config encapsulates all configuration values for envscan.
//
// Configuration sections by subsystem:
//   - Paths: data, log, archive, and workflow registry locations
//   - Logging: log format and level
//   - Dedup: cascade thresholds, lookback window, enforcement mode
//   - Evolution: thread index and backup locations, workflow order
//   - Preflight: free-space floor for doctor checks
type Config struct {
	Paths     Paths     `toml:"paths"`
	Logging   Logging   `toml:"logging"`
	Dedup     Dedup     `toml:"dedup"`
	Evolution Evolution `toml:"evolution"`
	Preflight Preflight `toml:"preflight"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("envscan.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, log, and index directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Evolution.IndexDir, c.Evolution.BackupDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// IndexPath returns the default evolution index location for a workflow.
func (c *Config) IndexPath(workflow string) string {
	return filepath.Join(c.Evolution.IndexDir, "evolution-index-"+textutil.SanitizeToken(workflow)+".json")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
