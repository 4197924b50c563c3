package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"envscan/internal/config"
	"envscan/internal/logging"
	"envscan/internal/pipeline"
	"envscan/internal/registry"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = pipeline.Wrap(pipeline.ErrConfiguration, "config", "load", resolved, err)
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// loggerFor returns the process logger; construction failures fall back to
// a console logger on stderr.
func (c *commandContext) loggerFor() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.configValue())
		if err != nil {
			logger, _ = logging.NewFromConfig(nil)
		}
		c.logger = logger
	})
	return c.logger
}

// loadRegistry reads the workflow registry at path, falling back to the
// configured registry_path. A missing file degrades to built-in defaults.
func (c *commandContext) loadRegistry(path string) (*registry.Evolution, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		if cfg := c.configValue(); cfg != nil {
			path = cfg.Paths.RegistryPath
		}
	}
	if path == "" {
		return nil, nil
	}
	reg, err := registry.Load(path)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			logging.WarnWithContext(c.loggerFor(), "workflow registry missing", "registry_missing",
				logging.String("path", path),
				logging.String(logging.FieldImpact, "evolution settings fall back to built-in defaults"),
				logging.String(logging.FieldErrorHint, "fix registry_path or pass --registry"),
			)
			return nil, nil
		}
		return nil, pipeline.Wrap(pipeline.ErrConfiguration, "registry", "load", path, err)
	}
	return reg.Evolution(), nil
}

func commandContextFor(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func requireFlag(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return pipeline.Wrap(pipeline.ErrValidation, "cli", "parse flags", fmt.Sprintf("--%s is required", name), nil)
	}
	return nil
}
