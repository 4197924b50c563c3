package evolution

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"envscan/internal/logging"
	"envscan/internal/pipeline"
	"envscan/internal/schema"
	"envscan/internal/signal"
	"envscan/internal/textutil"
)

// WorkflowIndex pairs a workflow label with its loaded thread index.
type WorkflowIndex struct {
	Workflow string
	Index    *Index
}

// Correlation links two threads from different workflows.
type Correlation struct {
	SourceWorkflow    string     `json:"source_wf"`
	SourceThreadID    string     `json:"source_thread_id"`
	SourceTitle       string     `json:"source_title"`
	TargetWorkflow    string     `json:"target_wf"`
	TargetThreadID    string     `json:"target_thread_id"`
	TargetTitle       string     `json:"target_title"`
	TitleSimilarity   float64    `json:"title_similarity"`
	KeywordSimilarity float64    `json:"keyword_similarity"`
	CombinedScore     float64    `json:"combined_score"`
	Confidence        Confidence `json:"confidence"`
	LeadDays          int        `json:"lead_days"`
	Direction         string     `json:"direction"`
}

// CorrelationReport is the cross-workflow correlation output.
type CorrelationReport struct {
	TrackerVersion    string        `json:"tracker_version"`
	CorrelatedAt      time.Time     `json:"correlated_at"`
	Enabled           bool          `json:"enabled"`
	Workflows         []string      `json:"workflows"`
	TotalCorrelations int           `json:"total_correlations"`
	Correlations      []Correlation `json:"correlations"`
}

// Validate checks the report against its schema.
func (r *CorrelationReport) Validate() error {
	if err := schema.Validate(schema.Correlation, r); err != nil {
		return pipeline.Wrap(pipeline.ErrValidation, "correlation", "validate report", "", err)
	}
	return nil
}

// Correlate compares every thread of each workflow with every thread of each
// later workflow in the given order. A pair correlates when title and keyword
// similarity both clear their thresholds. The thread created first is the
// source, so lead_days is never negative. Indexes are only read.
func Correlate(indexes []WorkflowIndex, cfg CorrelationConfig, now time.Time, logger *slog.Logger) *CorrelationReport {
	logger = logging.NewComponentLogger(logger, "correlation")
	report := &CorrelationReport{
		TrackerVersion: TrackerVersion,
		CorrelatedAt:   now.UTC(),
		Enabled:        cfg.Enabled,
		Workflows:      make([]string, 0, len(indexes)),
		Correlations:   []Correlation{},
	}
	for _, wi := range indexes {
		report.Workflows = append(report.Workflows, wi.Workflow)
	}
	if !cfg.Enabled {
		logger.Info("cross-workflow correlation disabled; emitting empty report")
		return report
	}

	for i := 0; i < len(indexes); i++ {
		for j := i + 1; j < len(indexes); j++ {
			report.Correlations = append(report.Correlations, correlatePair(indexes[i], indexes[j], cfg)...)
		}
	}
	report.TotalCorrelations = len(report.Correlations)

	logger.Info("cross-workflow correlation complete",
		logging.Int("workflows", len(indexes)),
		logging.Int("correlations", report.TotalCorrelations),
		logging.Float64("title_threshold", cfg.TitleThreshold),
		logging.Float64("semantic_threshold", cfg.SemanticThreshold),
	)
	return report
}

func correlatePair(a, b WorkflowIndex, cfg CorrelationConfig) []Correlation {
	if a.Index == nil || b.Index == nil {
		return nil
	}
	var out []Correlation
	for _, aID := range a.Index.SortedIDs() {
		at := a.Index.Threads[aID]
		aKeywords := threadKeywordSet(at)
		for _, bID := range b.Index.SortedIDs() {
			bt := b.Index.Threads[bID]
			if cfg.CategoryFilter && at.PrimaryCategory != "" && bt.PrimaryCategory != "" &&
				at.PrimaryCategory != bt.PrimaryCategory {
				continue
			}
			titleSim := textutil.TitleSimilarity(at.CanonicalTitle, bt.CanonicalTitle)
			kwSim := textutil.Jaccard(aKeywords, threadKeywordSet(bt))
			if titleSim < cfg.TitleThreshold || kwSim < cfg.SemanticThreshold {
				continue
			}
			combined := 0.5*titleSim + 0.5*kwSim
			confidence := ConfidenceMedium
			if combined >= cfg.HighConfidenceThreshold {
				confidence = ConfidenceHigh
			}

			srcWF, srcID, src, tgtWF, tgtID, tgt := a.Workflow, aID, at, b.Workflow, bID, bt
			lead := createdGap(at, bt)
			if lead < 0 {
				srcWF, srcID, src, tgtWF, tgtID, tgt = b.Workflow, bID, bt, a.Workflow, aID, at
				lead = -lead
			}
			out = append(out, Correlation{
				SourceWorkflow:    srcWF,
				SourceThreadID:    srcID,
				SourceTitle:       src.CanonicalTitle,
				TargetWorkflow:    tgtWF,
				TargetThreadID:    tgtID,
				TargetTitle:       tgt.CanonicalTitle,
				TitleSimilarity:   round(titleSim, 3),
				KeywordSimilarity: round(kwSim, 3),
				CombinedScore:     round(combined, 3),
				Confidence:        confidence,
				LeadDays:          lead,
				Direction:         fmt.Sprintf("%s→%s", srcWF, tgtWF),
			})
		}
	}
	return out
}

// createdGap is the signed number of days from a's creation to b's. Either
// date failing to parse yields 0.
func createdGap(a, b *Thread) int {
	ac, err := signal.ParseDate(a.CreatedDate)
	if err != nil {
		return 0
	}
	bc, err := signal.ParseDate(b.CreatedDate)
	if err != nil {
		return 0
	}
	return signal.DaysBetween(ac, bc)
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
