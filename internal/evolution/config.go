package evolution

import (
	"strings"

	"envscan/internal/registry"
	"envscan/internal/validation"
)

// Default thresholds used when neither the registry nor the caller sets them.
const (
	DefaultTitleThreshold          = 0.80
	DefaultSemanticThreshold       = 0.70
	DefaultHighConfidenceThreshold = 0.85
	DefaultFadeDays                = 3
	DefaultMaxThreadAgeDays        = 90
	DefaultMinAppearances          = 2
	DefaultStrengtheningDelta      = 5.0
	DefaultWeakeningDelta          = -5.0

	DefaultCorrelationTitleThreshold    = 0.75
	DefaultCorrelationSemanticThreshold = 0.65
	DefaultCorrelationHighConfidence    = 0.80
)

// Config sources reported in evolution maps.
const (
	SourceDefaults = "defaults"
	SourceRegistry = "registry"
	SourceExplicit = "explicit"
)

// MatchWeights blend title and keyword similarity into one ranking score.
// Both applies when both metrics clear their thresholds (title weight, the
// keyword weight is the remainder). Dominant applies to whichever metric
// cleared its threshold alone.
type MatchWeights struct {
	Both     float64 `json:"both_title_weight" validate:"gte=0,lte=1"`
	Dominant float64 `json:"dominant_weight" validate:"gte=0,lte=1"`
}

// CorrelationConfig controls cross-workflow correlation.
type CorrelationConfig struct {
	Enabled                 bool    `json:"enabled"`
	TitleThreshold          float64 `json:"title_threshold" validate:"gte=0,lte=1"`
	SemanticThreshold       float64 `json:"semantic_threshold" validate:"gte=0,lte=1"`
	HighConfidenceThreshold float64 `json:"high_confidence_threshold" validate:"gte=0,lte=1"`
	CategoryFilter          bool    `json:"category_filter_enabled"`
}

// Config is the fully resolved tracker configuration.
type Config struct {
	Enabled                   bool              `json:"enabled"`
	TitleThreshold            float64           `json:"title_threshold" validate:"gte=0,lte=1"`
	SemanticThreshold         float64           `json:"semantic_threshold" validate:"gte=0,lte=1"`
	HighConfidenceThreshold   float64           `json:"high_confidence_threshold" validate:"gte=0,lte=1"`
	FadeDays                  int               `json:"fade_days" validate:"gte=0"`
	MaxThreadAgeDays          int               `json:"max_thread_age_days" validate:"gte=0"`
	MinAppearancesForVelocity int               `json:"min_appearances_for_velocity" validate:"gte=1"`
	StrengtheningDelta        float64           `json:"strengthening_delta"`
	WeakeningDelta            float64           `json:"weakening_delta" validate:"ltefield=StrengtheningDelta"`
	Weights                   MatchWeights      `json:"match_weights"`
	Correlation               CorrelationConfig `json:"cross_workflow_correlation"`

	// Source records where the values came from.
	Source string `json:"-"`
}

// DefaultConfig returns the hardcoded defaults with tracking enabled.
func DefaultConfig() Config {
	return Config{
		Enabled:                   true,
		TitleThreshold:            DefaultTitleThreshold,
		SemanticThreshold:         DefaultSemanticThreshold,
		HighConfidenceThreshold:   DefaultHighConfidenceThreshold,
		FadeDays:                  DefaultFadeDays,
		MaxThreadAgeDays:          DefaultMaxThreadAgeDays,
		MinAppearancesForVelocity: DefaultMinAppearances,
		StrengtheningDelta:        DefaultStrengtheningDelta,
		WeakeningDelta:            DefaultWeakeningDelta,
		Weights:                   MatchWeights{Both: 0.5, Dominant: 0.7},
		Correlation: CorrelationConfig{
			Enabled:                 true,
			TitleThreshold:          DefaultCorrelationTitleThreshold,
			SemanticThreshold:       DefaultCorrelationSemanticThreshold,
			HighConfidenceThreshold: DefaultCorrelationHighConfidence,
			CategoryFilter:          true,
		},
		Source: SourceDefaults,
	}
}

// Validate reports out-of-range thresholds and day counts.
func (c Config) Validate() error {
	return validation.Struct(c)
}

// Overrides are explicit call-time values. Nil fields defer to the registry
// or the defaults.
type Overrides struct {
	TitleThreshold            *float64
	SemanticThreshold         *float64
	HighConfidenceThreshold   *float64
	FadeDays                  *int
	MaxThreadAgeDays          *int
	MinAppearancesForVelocity *int
	StrengtheningDelta        *float64
	WeakeningDelta            *float64

	CorrelationTitleThreshold    *float64
	CorrelationSemanticThreshold *float64
}

func (o Overrides) any() bool {
	return o.TitleThreshold != nil || o.SemanticThreshold != nil || o.HighConfidenceThreshold != nil ||
		o.FadeDays != nil || o.MaxThreadAgeDays != nil || o.MinAppearancesForVelocity != nil ||
		o.StrengtheningDelta != nil || o.WeakeningDelta != nil ||
		o.CorrelationTitleThreshold != nil || o.CorrelationSemanticThreshold != nil
}

// ResolveConfig layers explicit overrides over the registry's
// signal_evolution section over the defaults, then validates the result.
//
// A registry that does not set enabled: true disables tracking, and
// correlation additionally needs its own enabled flag. Without a registry
// both run.
func ResolveConfig(o Overrides, reg *registry.Evolution) (Config, error) {
	cfg := DefaultConfig()
	var sources []string

	if reg != nil {
		sources = append(sources, SourceRegistry)
		cfg.Enabled = reg.IsEnabled()
		m := reg.Matching
		setFloat(&cfg.TitleThreshold, m.TitleSimilarityThreshold)
		setFloat(&cfg.SemanticThreshold, m.SemanticSimilarityThreshold)
		setFloat(&cfg.HighConfidenceThreshold, m.HighConfidenceThreshold)
		setInt(&cfg.FadeDays, reg.Lifecycle.FadeThresholdDays)
		setInt(&cfg.MaxThreadAgeDays, reg.Lifecycle.MaxThreadAgeDays)
		setInt(&cfg.MinAppearancesForVelocity, reg.Lifecycle.MinAppearancesForVelocity)
		setFloat(&cfg.StrengtheningDelta, reg.StateDetection.StrengtheningPSSTDelta)
		setFloat(&cfg.WeakeningDelta, reg.StateDetection.WeakeningPSSTDelta)

		cw := reg.CrossWorkflowCorrelation
		cfg.Correlation.Enabled = cfg.Enabled && cw.Enabled != nil && *cw.Enabled
		setFloat(&cfg.Correlation.TitleThreshold, cw.Matching.TitleSimilarityThreshold)
		setFloat(&cfg.Correlation.SemanticThreshold, cw.Matching.SemanticSimilarityThreshold)
		setFloat(&cfg.Correlation.HighConfidenceThreshold, cw.Matching.HighConfidenceThreshold)
		if cw.Matching.CategoryFilterEnabled != nil {
			cfg.Correlation.CategoryFilter = *cw.Matching.CategoryFilterEnabled
		}
	}

	if o.any() {
		sources = append(sources, SourceExplicit)
		setFloat(&cfg.TitleThreshold, o.TitleThreshold)
		setFloat(&cfg.SemanticThreshold, o.SemanticThreshold)
		setFloat(&cfg.HighConfidenceThreshold, o.HighConfidenceThreshold)
		setInt(&cfg.FadeDays, o.FadeDays)
		setInt(&cfg.MaxThreadAgeDays, o.MaxThreadAgeDays)
		setInt(&cfg.MinAppearancesForVelocity, o.MinAppearancesForVelocity)
		setFloat(&cfg.StrengtheningDelta, o.StrengtheningDelta)
		setFloat(&cfg.WeakeningDelta, o.WeakeningDelta)
		setFloat(&cfg.Correlation.TitleThreshold, o.CorrelationTitleThreshold)
		setFloat(&cfg.Correlation.SemanticThreshold, o.CorrelationSemanticThreshold)
	}

	if len(sources) > 0 {
		cfg.Source = strings.Join(sources, "+")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
