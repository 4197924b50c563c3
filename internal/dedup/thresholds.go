package dedup

import (
	"envscan/internal/config"
	"envscan/internal/validation"
)

// Thresholds are the definite/uncertain cut-offs for stages B through D.
// Stage A is binary and always scores 1.0.
type Thresholds struct {
	TopicDefinite   float64 `json:"topic_fingerprint_definite" validate:"gte=0,lte=1"`
	TopicUncertain  float64 `json:"topic_fingerprint_uncertain" validate:"gte=0,lte=1,ltefield=TopicDefinite"`
	TitleDefinite   float64 `json:"title_similarity_definite" validate:"gte=0,lte=1"`
	TitleUncertain  float64 `json:"title_similarity_uncertain" validate:"gte=0,lte=1,ltefield=TitleDefinite"`
	EntityDefinite  float64 `json:"entity_overlap_definite" validate:"gte=0,lte=1"`
	EntityUncertain float64 `json:"entity_overlap_uncertain" validate:"gte=0,lte=1,ltefield=EntityDefinite"`
}

// DefaultThresholds returns the calibrated cascade thresholds.
func DefaultThresholds() Thresholds {
	return ThresholdsFromConfig(config.Default().Dedup)
}

// ThresholdsFromConfig copies the cascade thresholds out of the tool config.
func ThresholdsFromConfig(cfg config.Dedup) Thresholds {
	return Thresholds{
		TopicDefinite:   cfg.TopicDefinite,
		TopicUncertain:  cfg.TopicUncertain,
		TitleDefinite:   cfg.TitleDefinite,
		TitleUncertain:  cfg.TitleUncertain,
		EntityDefinite:  cfg.EntityDefinite,
		EntityUncertain: cfg.EntityUncertain,
	}
}

// Validate rejects thresholds outside [0,1] and uncertain cut-offs above
// their definite counterpart.
func (t Thresholds) Validate() error {
	return validation.Struct(t)
}

// reportMap renders the thresholds the way gate reports list them.
func (t Thresholds) reportMap() map[string]float64 {
	return map[string]float64{
		"url_exact":                   1.0,
		"topic_fingerprint_definite":  t.TopicDefinite,
		"topic_fingerprint_uncertain": t.TopicUncertain,
		"title_similarity_definite":   t.TitleDefinite,
		"title_similarity_uncertain":  t.TitleUncertain,
		"entity_overlap_definite":     t.EntityDefinite,
		"entity_overlap_uncertain":    t.EntityUncertain,
	}
}
