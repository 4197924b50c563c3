package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. Out-of-range values are
// reported, never clamped.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateDedup(); err != nil {
		return err
	}
	if err := c.validatePreflight(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Evolution.IndexDir == "" {
		return errors.New("evolution.index_dir must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateDedup() error {
	if c.Dedup.LookbackDays < 0 {
		return errors.New("dedup.lookback_days must be 0 or greater")
	}
	switch c.Dedup.Enforce {
	case EnforceStrict, EnforceLenient:
	default:
		return fmt.Errorf("dedup.enforce: unsupported value %q (want strict or lenient)", c.Dedup.Enforce)
	}
	pairs := []struct {
		stage               string
		definite, uncertain float64
	}{
		{"topic", c.Dedup.TopicDefinite, c.Dedup.TopicUncertain},
		{"title", c.Dedup.TitleDefinite, c.Dedup.TitleUncertain},
		{"entity", c.Dedup.EntityDefinite, c.Dedup.EntityUncertain},
	}
	for _, p := range pairs {
		if p.definite < 0 || p.definite > 1 {
			return fmt.Errorf("dedup.%s_definite must be between 0 and 1", p.stage)
		}
		if p.uncertain < 0 || p.uncertain > 1 {
			return fmt.Errorf("dedup.%s_uncertain must be between 0 and 1", p.stage)
		}
		if p.uncertain > p.definite {
			return fmt.Errorf("dedup.%s_uncertain must not exceed dedup.%s_definite", p.stage, p.stage)
		}
	}
	return nil
}

func (c *Config) validatePreflight() error {
	if c.Preflight.MinFreeMiB < 0 {
		return errors.New("preflight.min_free_mib must be 0 or greater")
	}
	return nil
}
