package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when the registry file does not exist.
var ErrNotFound = errors.New("registry not found")

// Matching holds thread matching thresholds.
type Matching struct {
	TitleSimilarityThreshold    *float64 `yaml:"title_similarity_threshold"`
	SemanticSimilarityThreshold *float64 `yaml:"semantic_similarity_threshold"`
	HighConfidenceThreshold     *float64 `yaml:"high_confidence_threshold"`
	CategoryFilterEnabled       *bool    `yaml:"category_filter_enabled"`
}

// Lifecycle holds fade and velocity settings.
type Lifecycle struct {
	FadeThresholdDays         *int `yaml:"fade_threshold_days"`
	MaxThreadAgeDays          *int `yaml:"max_thread_age_days"`
	MinAppearancesForVelocity *int `yaml:"min_appearances_for_velocity"`
}

// StateDetection holds the pSST deltas that drive STRENGTHENING/WEAKENING.
type StateDetection struct {
	StrengtheningPSSTDelta *float64 `yaml:"strengthening_psst_delta"`
	WeakeningPSSTDelta     *float64 `yaml:"weakening_psst_delta"`
}

// CrossWorkflow holds cross-workflow correlation settings.
type CrossWorkflow struct {
	Enabled  *bool    `yaml:"enabled"`
	Matching Matching `yaml:"matching"`
}

// Evolution is the system.signal_evolution section.
type Evolution struct {
	Enabled                  *bool          `yaml:"enabled"`
	Matching                 Matching       `yaml:"matching"`
	Lifecycle                Lifecycle      `yaml:"lifecycle"`
	StateDetection           StateDetection `yaml:"state_detection"`
	CrossWorkflowCorrelation CrossWorkflow  `yaml:"cross_workflow_correlation"`
}

// IsEnabled reports whether tracking is switched on. A registry that omits
// the flag is treated as disabled.
func (e *Evolution) IsEnabled() bool {
	return e != nil && e.Enabled != nil && *e.Enabled
}

// Registry is the decoded registry document. Path records where it was read from.
type Registry struct {
	Path   string `yaml:"-"`
	System struct {
		SignalEvolution Evolution `yaml:"signal_evolution"`
	} `yaml:"system"`
}

// Evolution returns the signal evolution section.
func (r *Registry) Evolution() *Evolution {
	if r == nil {
		return nil
	}
	return &r.System.SignalEvolution
}

// Load reads and decodes the registry at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read registry: %w", err)
	}
	reg, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	reg.Path = path
	return reg, nil
}

// Decode parses registry YAML. An empty document yields an empty registry.
func Decode(data []byte) (*Registry, error) {
	var reg Registry
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&reg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &reg, nil
}
