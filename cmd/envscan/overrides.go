package main

import (
	"github.com/spf13/cobra"

	"envscan/internal/evolution"
)

// overrideFlags holds the threshold flags shared by track and correlate.
// Only flags the user actually set become overrides.
type overrideFlags struct {
	title, semantic, highConfidence float64
	fadeDays, maxAgeDays            int
	minAppearances                  int
	strengthening, weakening        float64
	corrTitle, corrSemantic         float64
}

func (o *overrideFlags) registerTracking(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&o.title, "title-threshold", evolution.DefaultTitleThreshold, "Title similarity needed for a thread match")
	f.Float64Var(&o.semantic, "semantic-threshold", evolution.DefaultSemanticThreshold, "Keyword Jaccard needed for a thread match")
	f.Float64Var(&o.highConfidence, "high-confidence", evolution.DefaultHighConfidenceThreshold, "Combined score graded HIGH")
	f.IntVar(&o.fadeDays, "fade-days", evolution.DefaultFadeDays, "Days unseen before a thread fades")
	f.IntVar(&o.maxAgeDays, "max-age-days", evolution.DefaultMaxThreadAgeDays, "Thread age in days before it fades regardless of activity")
	f.IntVar(&o.minAppearances, "min-appearances", evolution.DefaultMinAppearances, "Appearances needed before velocity is computed")
	f.Float64Var(&o.strengthening, "strengthening-delta", evolution.DefaultStrengtheningDelta, "pSST increase marking a thread STRENGTHENING")
	f.Float64Var(&o.weakening, "weakening-delta", evolution.DefaultWeakeningDelta, "pSST decrease marking a thread WEAKENING")
}

func (o *overrideFlags) registerCorrelation(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&o.corrTitle, "title-threshold", evolution.DefaultCorrelationTitleThreshold, "Title similarity needed for a correlation")
	f.Float64Var(&o.corrSemantic, "semantic-threshold", evolution.DefaultCorrelationSemanticThreshold, "Keyword Jaccard needed for a correlation")
}

func (o *overrideFlags) tracking(cmd *cobra.Command) evolution.Overrides {
	f := cmd.Flags()
	var out evolution.Overrides
	if f.Changed("title-threshold") {
		out.TitleThreshold = &o.title
	}
	if f.Changed("semantic-threshold") {
		out.SemanticThreshold = &o.semantic
	}
	if f.Changed("high-confidence") {
		out.HighConfidenceThreshold = &o.highConfidence
	}
	if f.Changed("fade-days") {
		out.FadeDays = &o.fadeDays
	}
	if f.Changed("max-age-days") {
		out.MaxThreadAgeDays = &o.maxAgeDays
	}
	if f.Changed("min-appearances") {
		out.MinAppearancesForVelocity = &o.minAppearances
	}
	if f.Changed("strengthening-delta") {
		out.StrengtheningDelta = &o.strengthening
	}
	if f.Changed("weakening-delta") {
		out.WeakeningDelta = &o.weakening
	}
	return out
}

func (o *overrideFlags) correlation(cmd *cobra.Command) evolution.Overrides {
	f := cmd.Flags()
	var out evolution.Overrides
	if f.Changed("title-threshold") {
		out.CorrelationTitleThreshold = &o.corrTitle
	}
	if f.Changed("semantic-threshold") {
		out.CorrelationSemanticThreshold = &o.corrSemantic
	}
	return out
}
