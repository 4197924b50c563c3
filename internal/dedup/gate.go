package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"envscan/internal/config"
	"envscan/internal/logging"
	"envscan/internal/signal"
)

// Version is stamped into every gate report.
const Version = "1.0.0"

// Gate statuses.
const (
	StatusPass            = "PASS"
	StatusPassWithRemoval = "PASS_WITH_REMOVAL"
	StatusWarn            = "WARN"
)

// Match is one duplicate or uncertain decision as it appears in reports.
type Match struct {
	SignalID        string  `json:"signal_id"`
	SignalTitle     string  `json:"signal_title"`
	MatchedSignalID string  `json:"matched_signal_id"`
	MatchedTitle    string  `json:"matched_title"`
	Stage           Stage   `json:"stage"`
	Score           float64 `json:"score"`
}

// Statistics counts verdicts for one gate run.
type Statistics struct {
	TotalInput         int `json:"total_input"`
	DefiniteNew        int `json:"definite_new"`
	DefiniteDuplicates int `json:"definite_duplicates"`
	Uncertain          int `json:"uncertain"`
	PassThrough        int `json:"pass_through"`
	Removed            int `json:"removed"`
}

// Report is the gate's JSON report.
type Report struct {
	GateID         string             `json:"gate_id"`
	GateVersion    string             `json:"gate_version"`
	CheckedAt      time.Time          `json:"checked_at"`
	Workflow       string             `json:"workflow,omitempty"`
	SignalsFile    string             `json:"signals_file,omitempty"`
	PreviousFile   string             `json:"previous_file,omitempty"`
	Status         string             `json:"gate_status"`
	Message        string             `json:"gate_message"`
	Enforce        string             `json:"enforce"`
	LookbackDays   int                `json:"lookback_days"`
	Thresholds     map[string]float64 `json:"thresholds"`
	HistorySize    int                `json:"history_size"`
	URLIndexSize   int                `json:"url_index_size"`
	AmbiguousURLs  int                `json:"ambiguous_urls"`
	Statistics     Statistics         `json:"statistics"`
	StageBreakdown map[Stage]int      `json:"stage_breakdown"`
	Duplicates     []Match            `json:"duplicates"`
	Uncertain      []Match            `json:"uncertain_signals"`
	Surviving      []string           `json:"surviving_signals"`
	Warnings       []string           `json:"warnings,omitempty"`
}

// Filtered is the pass-through signal set handed to the next pipeline step.
type Filtered struct {
	FilteredAt time.Time       `json:"filtered_at"`
	GateID     string          `json:"gate_id"`
	Workflow   string          `json:"workflow,omitempty"`
	Signals    []signal.Signal `json:"signals"`
	Removed    []Match         `json:"definite_duplicates_removed"`
}

// Gate runs the cascade over a batch of new signals.
type Gate struct {
	Thresholds Thresholds
	// Enforce is config.EnforceStrict or config.EnforceLenient.
	Enforce      string
	LookbackDays int
	Workflow     string
	Logger       *slog.Logger
	Now          func() time.Time
}

// NewGate builds a gate from the tool configuration.
func NewGate(cfg *config.Config, workflow string, logger *slog.Logger) *Gate {
	return &Gate{
		Thresholds:   ThresholdsFromConfig(cfg.Dedup),
		Enforce:      cfg.Dedup.Enforce,
		LookbackDays: cfg.Dedup.LookbackDays,
		Workflow:     workflow,
		Logger:       logger,
	}
}

func (g *Gate) now() time.Time {
	if g.Now != nil {
		return g.Now().UTC()
	}
	return time.Now().UTC()
}

func (g *Gate) strict() bool {
	return g.Enforce != config.EnforceLenient
}

// Run classifies every new signal against history. An empty batch is a PASS
// whatever the history holds. Otherwise missing or empty history passes
// everything through with a WARN status.
func (g *Gate) Run(ctx context.Context, newSignals []signal.Signal, history signal.History) (*Report, *Filtered) {
	logger := logging.WithContext(ctx, logging.NewComponentLogger(g.Logger, "dedup"))
	now := g.now()
	enforce := config.EnforceStrict
	if !g.strict() {
		enforce = config.EnforceLenient
	}

	report := &Report{
		GateID:         uuid.NewString(),
		GateVersion:    Version,
		CheckedAt:      now,
		Workflow:       g.Workflow,
		Enforce:        enforce,
		LookbackDays:   g.LookbackDays,
		Thresholds:     g.Thresholds.reportMap(),
		StageBreakdown: make(map[Stage]int, len(Stages)),
		Duplicates:     []Match{},
		Uncertain:      []Match{},
		Surviving:      []string{},
	}
	for _, st := range Stages {
		report.StageBreakdown[st] = 0
	}
	filtered := &Filtered{
		FilteredAt: now,
		GateID:     report.GateID,
		Workflow:   g.Workflow,
		Signals:    []signal.Signal{},
		Removed:    []Match{},
	}

	retained := FilterLookback(history.Signals, g.LookbackDays, now)
	if dropped := len(history.Signals) - len(retained); dropped > 0 {
		logger.Info("lookback filter applied",
			logging.Int("lookback_days", g.LookbackDays),
			logging.Int("dropped", dropped),
			logging.Int("retained", len(retained)),
		)
	}

	index := BuildIndex(retained, Options{Thresholds: g.Thresholds, URLIndex: history.URLIndex})
	report.HistorySize = index.Len()
	report.URLIndexSize = len(index.urls)
	report.AmbiguousURLs = index.AmbiguousURLs()
	report.Statistics.TotalInput = len(newSignals)

	if index.Len() == 0 && len(newSignals) > 0 {
		reason := "previous signals file contained no usable signals"
		if history.Missing {
			reason = "previous signals file not found"
		}
		report.Warnings = append(report.Warnings, reason)
		logging.WarnWithContext(logger, "dedup history unavailable", "dedup_history_missing",
			logging.String("reason", reason),
			logging.String(logging.FieldImpact, "all signals pass through without cross-day dedup"),
			logging.String(logging.FieldErrorHint, "check the previous signals export for this workflow"),
		)
		for _, sig := range newSignals {
			report.Surviving = append(report.Surviving, signalKey(sig))
			filtered.Signals = append(filtered.Signals, sig)
		}
		report.Statistics.DefiniteNew = len(newSignals)
		report.Statistics.PassThrough = len(newSignals)
		report.Status = StatusWarn
		report.Message = fmt.Sprintf("No previous signals found. All %d signals passed through.", len(newSignals))
		return report, filtered
	}

	for _, sig := range newSignals {
		result := index.Classify(sig)
		key := signalKey(sig)
		attrs := append(logging.DecisionAttrs("dedup_verdict", string(result.Verdict), string(result.Stage)),
			logging.SignalID(key),
			logging.String("matched_signal_id", result.MatchedID),
			logging.Float64("score", result.Score),
		)
		logger.Debug("dedup verdict", logging.Args(attrs...)...)

		match := Match{
			SignalID:        key,
			SignalTitle:     sig.Title,
			MatchedSignalID: result.MatchedID,
			MatchedTitle:    result.MatchedTitle,
			Stage:           result.Stage,
			Score:           result.Score,
		}
		switch result.Verdict {
		case VerdictDuplicate:
			report.Statistics.DefiniteDuplicates++
			report.StageBreakdown[result.Stage]++
			report.Duplicates = append(report.Duplicates, match)
			if g.strict() {
				report.Statistics.Removed++
				filtered.Removed = append(filtered.Removed, match)
				continue
			}
		case VerdictUncertain:
			report.Statistics.Uncertain++
			report.Uncertain = append(report.Uncertain, match)
		default:
			report.Statistics.DefiniteNew++
		}
		report.Surviving = append(report.Surviving, key)
		filtered.Signals = append(filtered.Signals, sig)
	}
	report.Statistics.PassThrough = len(filtered.Signals)
	report.Status, report.Message = g.status(report.Statistics)

	logger.Info("dedup gate complete",
		logging.String("gate_status", report.Status),
		logging.Int("total_input", report.Statistics.TotalInput),
		logging.Int("definite_duplicates", report.Statistics.DefiniteDuplicates),
		logging.Int("uncertain", report.Statistics.Uncertain),
		logging.Int("definite_new", report.Statistics.DefiniteNew),
		logging.Int("history_size", report.HistorySize),
	)
	return report, filtered
}

func (g *Gate) status(stats Statistics) (string, string) {
	switch {
	case stats.TotalInput == 0:
		return StatusPass, "No new signals to check."
	case stats.DefiniteDuplicates == 0:
		return StatusPass, fmt.Sprintf(
			"No definite duplicates. %d uncertain signal(s) flagged for review. %d definite new signal(s) passed.",
			stats.Uncertain, stats.DefiniteNew)
	case g.strict():
		return StatusPassWithRemoval, fmt.Sprintf(
			"%d definite duplicate(s) removed. %d uncertain signal(s) flagged for review. %d definite new signal(s) passed.",
			stats.DefiniteDuplicates, stats.Uncertain, stats.DefiniteNew)
	default:
		return StatusWarn, fmt.Sprintf(
			"%d definite duplicate(s) found (lenient, logged only). %d uncertain. All %d signals retained.",
			stats.DefiniteDuplicates, stats.Uncertain, stats.TotalInput)
	}
}

// FilterLookback keeps history signals collected within the last days days.
// Signals with a missing or unparseable collected_at are kept. days <= 0
// disables the filter.
func FilterLookback(history []signal.Signal, days int, now time.Time) []signal.Signal {
	if days <= 0 {
		return history
	}
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)
	out := make([]signal.Signal, 0, len(history))
	for _, sig := range history {
		collected, ok := signal.ParseTime(sig.CollectedAt)
		if !ok || !collected.Before(cutoff) {
			out = append(out, sig)
		}
	}
	return out
}
