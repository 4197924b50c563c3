package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeDedup()
	c.normalizeEvolution()
	return nil
}

func (c *Config) normalizePaths() error {
	targets := []*string{
		&c.Paths.DataDir,
		&c.Paths.LogDir,
		&c.Paths.ArchivePath,
		&c.Paths.RegistryPath,
		&c.Evolution.IndexDir,
		&c.Evolution.BackupDir,
		&c.Evolution.SignalsDBPath,
		&c.Evolution.PriorityRankedPath,
	}
	for _, target := range targets {
		trimmed := strings.TrimSpace(*target)
		if trimmed == "" {
			*target = ""
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return fmt.Errorf("expand path %q: %w", trimmed, err)
		}
		*target = expanded
	}
	if c.Evolution.BackupDir == "" {
		c.Evolution.BackupDir = c.Evolution.IndexDir
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeDedup() {
	c.Dedup.Enforce = strings.ToLower(strings.TrimSpace(c.Dedup.Enforce))
	if c.Dedup.Enforce == "" {
		c.Dedup.Enforce = defaultEnforce
	}
}

func (c *Config) normalizeEvolution() {
	workflows := make([]string, 0, len(c.Evolution.Workflows))
	seen := make(map[string]struct{}, len(c.Evolution.Workflows))
	for _, wf := range c.Evolution.Workflows {
		wf = strings.TrimSpace(wf)
		if wf == "" {
			continue
		}
		if _, dup := seen[wf]; dup {
			continue
		}
		seen[wf] = struct{}{}
		workflows = append(workflows, wf)
	}
	c.Evolution.Workflows = workflows
}
