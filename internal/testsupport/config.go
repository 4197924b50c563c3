package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"envscan/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ArchivePath = filepath.Join(base, "data", "signals.db")
	cfgVal.Paths.RegistryPath = ""
	cfgVal.Evolution.IndexDir = filepath.Join(base, "data", "evolution")
	cfgVal.Evolution.BackupDir = ""
	cfgVal.Preflight.MinFreeMiB = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithRegistry writes the registry YAML into the temp tree and points the
// config at it.
func WithRegistry(content string) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "workflow-registry.yaml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			b.t.Fatalf("write registry: %v", err)
		}
		b.cfg.Paths.RegistryPath = path
	}
}

// WithEnforce sets the dedup enforce mode.
func WithEnforce(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dedup.Enforce = mode
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

// WriteConfig encodes cfg as TOML at path.
func WriteConfig(t testing.TB, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}
