package evolution

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"envscan/internal/logging"
	"envscan/internal/pipeline"
	"envscan/internal/schema"
	"envscan/internal/signal"
	"envscan/internal/textutil"
)

// TrackerVersion is stamped into evolution maps.
const TrackerVersion = "1.0.0"

// historySummaryLimit is how many prior appearances an entry summarizes.
const historySummaryLimit = 5

// maxThreadKeywords bounds a thread's keyword set.
const maxThreadKeywords = 20

// EntryMetrics are the per-entry trajectory numbers.
type EntryMetrics struct {
	Velocity     float64 `json:"velocity"`
	Direction    string  `json:"direction"`
	Expansion    float64 `json:"expansion"`
	DaysTracked  int     `json:"days_tracked"`
	PSSTCurrent  float64 `json:"psst_current"`
	PSSTPrevious float64 `json:"psst_previous"`
	PSSTDelta    string  `json:"psst_delta"`
}

// HistoryPoint is one row of an entry's thread history summary.
type HistoryPoint struct {
	Date  string  `json:"date"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// Entry describes what happened to one signal.
type Entry struct {
	SignalID        string         `json:"signal_id"`
	ThreadID        string         `json:"thread_id"`
	CanonicalTitle  string         `json:"canonical_title"`
	State           State          `json:"state"`
	Confidence      Confidence     `json:"confidence"`
	AppearanceCount int            `json:"appearance_count"`
	Metrics         EntryMetrics   `json:"metrics"`
	History         []HistoryPoint `json:"thread_history_summary"`
}

// Summary counts entries per state.
type Summary struct {
	TotalSignals  int `json:"total_signals_today"`
	New           int `json:"new_signals"`
	Recurring     int `json:"recurring_signals"`
	Strengthening int `json:"strengthening_signals"`
	Weakening     int `json:"weakening_signals"`
	Transformed   int `json:"transformed_signals"`
	Faded         int `json:"faded_threads"`
	Active        int `json:"active_threads"`
}

func (s *Summary) count(state State) {
	switch state {
	case StateNew:
		s.New++
	case StateRecurring:
		s.Recurring++
	case StateStrengthening:
		s.Strengthening++
	case StateWeakening:
		s.Weakening++
	case StateTransformed:
		s.Transformed++
	}
}

// Map is the evolution map emitted for one run.
type Map struct {
	TrackerVersion  string        `json:"tracker_version"`
	RunID           string        `json:"run_id"`
	Workflow        string        `json:"workflow"`
	ScanDate        string        `json:"scan_date"`
	ComputedAt      time.Time     `json:"computed_at"`
	TrackingEnabled bool          `json:"tracking_enabled"`
	ConfigSource    string        `json:"config_source"`
	ConfigUsed      *Config       `json:"config_used,omitempty"`
	Summary         Summary       `json:"summary"`
	Entries         []Entry       `json:"evolution_entries"`
	Faded           []FadedThread `json:"faded_threads"`
	NewThreads      []string      `json:"new_threads_created"`
	BackupPath      string        `json:"backup_path,omitempty"`
}

// Tracker runs one day's batch against a workflow's thread index.
type Tracker struct {
	Config   Config
	Store    *Store
	Workflow string
	// Titles fills in titles for signals that arrived without one.
	Titles TitleSource
	// PSST backfills scores for signals that arrived without one.
	PSST   map[string]float64
	Logger *slog.Logger
	Now    func() time.Time
}

func (t *Tracker) now() time.Time {
	if t.Now != nil {
		return t.Now().UTC()
	}
	return time.Now().UTC()
}

// Track matches signals against the index, updates thread states, fades
// stale threads and saves the index. When tracking is disabled it returns an
// empty map and leaves the index untouched.
func (t *Tracker) Track(ctx context.Context, signals []signal.Signal, scanDate string) (*Map, error) {
	scanTime, err := signal.ParseDate(scanDate)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrValidation, "evolution", "parse scan date", "", err)
	}
	now := t.now()
	runID := uuid.NewString()
	ctx = pipeline.WithRunID(ctx, runID)
	ctx = pipeline.WithWorkflow(ctx, t.Workflow)
	ctx = pipeline.WithScanDate(ctx, scanDate)
	ctx = pipeline.WithStage(ctx, "evolution")
	logger := logging.WithContext(ctx, logging.NewComponentLogger(t.Logger, "evolution"))

	cfg := t.Config
	m := &Map{
		TrackerVersion:  TrackerVersion,
		RunID:           runID,
		Workflow:        t.Workflow,
		ScanDate:        scanDate,
		ComputedAt:      now,
		TrackingEnabled: cfg.Enabled,
		ConfigSource:    cfg.Source,
		Entries:         []Entry{},
		Faded:           []FadedThread{},
		NewThreads:      []string{},
	}
	if m.ConfigSource == "" {
		m.ConfigSource = SourceDefaults
	}

	if !cfg.Enabled {
		logger.Info("signal evolution disabled; emitting empty map",
			logging.String("config_source", m.ConfigSource),
		)
		return m, validateMap(m)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m.ConfigUsed = &cfg

	if err := t.Store.Lock(); err != nil {
		return nil, err
	}
	defer t.Store.Unlock()

	idx, exists, err := t.Store.Load(t.Workflow, now)
	if err != nil {
		return nil, err
	}
	if latest := idx.LatestSeenDate(); latest > scanDate {
		return nil, pipeline.Wrap(pipeline.ErrValidation, "evolution", "check scan date",
			fmt.Sprintf("scan date %s precedes last tracked date %s", scanDate, latest), nil)
	}
	if exists {
		backup, err := t.Store.Backup(scanDate)
		if err != nil {
			return nil, err
		}
		m.BackupPath = backup
	}

	observations := t.observe(ctx, logger, signals)
	m.Summary.TotalSignals = len(observations)
	matchCfg := cfg.MatchConfig()

	for _, obs := range observations {
		var entry Entry
		if res, ok := Match(obs, idx, matchCfg); ok {
			entry = t.extend(idx.Threads[res.ThreadID], obs, res.Confidence, scanDate)
			logger.Debug("signal matched thread", logging.Args(append(
				logging.DecisionAttrs("evolution_state", string(entry.State), string(res.Confidence)),
				logging.SignalID(obs.SignalID),
				logging.ThreadID(res.ThreadID),
				logging.Float64("combined", res.Combined),
			)...)...)
		} else {
			entry = t.open(idx, obs, scanDate)
			m.NewThreads = append(m.NewThreads, entry.ThreadID)
			logger.Debug("signal opened thread",
				logging.SignalID(obs.SignalID),
				logging.ThreadID(entry.ThreadID),
			)
		}
		m.Summary.count(entry.State)
		m.Entries = append(m.Entries, entry)
	}

	if faded := DetectFaded(idx, scanTime, cfg.FadeDays, cfg.MaxThreadAgeDays); len(faded) > 0 {
		m.Faded = faded
	}
	idx.Recount()
	m.Summary.Faded = len(m.Faded)
	m.Summary.Active = idx.ActiveThreads

	if err := validateMap(m); err != nil {
		return nil, err
	}
	if err := t.Store.Save(idx, now); err != nil {
		return nil, pipeline.Wrap(pipeline.ErrTransient, "evolution", "save index", t.Store.Path, err)
	}

	logger.Info("signal evolution tracked",
		logging.Int("signals", m.Summary.TotalSignals),
		logging.Int("new_threads", m.Summary.New),
		logging.Int("recurring", m.Summary.Recurring),
		logging.Int("strengthening", m.Summary.Strengthening),
		logging.Int("weakening", m.Summary.Weakening),
		logging.Int("transformed", m.Summary.Transformed),
		logging.Int("faded", m.Summary.Faded),
		logging.Int("active_threads", m.Summary.Active),
	)
	return m, nil
}

// observe turns signals into observations, filling titles and pSST scores.
func (t *Tracker) observe(ctx context.Context, logger *slog.Logger, signals []signal.Signal) []Observation {
	var untitled []string
	for _, sig := range signals {
		if !sig.HasTitle() && sig.ID != "" {
			untitled = append(untitled, sig.ID)
		}
	}
	titles := map[string]string{}
	if len(untitled) > 0 && t.Titles != nil {
		found, err := t.Titles.Titles(ctx, untitled)
		if err != nil {
			logging.WarnWithContext(logger, "title lookup failed", "evolution_title_lookup_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "untitled signals fall back to their ids"),
				logging.String(logging.FieldErrorHint, "check the signals archive path"),
			)
		} else {
			titles = found
		}
	}

	out := make([]Observation, 0, len(signals))
	for _, sig := range signals {
		title := displayTitle(sig.Title, titles[sig.ID], sig.ID)

		psst := sig.PSSTScore
		if !sig.HasPSST || psst == 0 {
			if v, ok := t.PSST[sig.ID]; ok {
				psst = v
			}
		}

		out = append(out, Observation{
			SignalID: sig.ID,
			Title:    title,
			Keywords: sig.Keywords,
			Category: sig.Category,
			PSST:     psst,
			Source:   sig.Source,
		})
	}
	return out
}

// displayTitle returns the first candidate that is non-empty and does not
// look like a thread id.
func displayTitle(candidates ...string) string {
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c != "" && !strings.HasPrefix(c, "THREAD-") {
			return c
		}
	}
	return "untitled"
}

// extend appends obs to a matched thread and returns its entry.
func (t *Tracker) extend(thread *Thread, obs Observation, confidence Confidence, scanDate string) Entry {
	prior := thread.Appearances
	state := ComputeState(thread, obs, confidence, t.Config.StrengtheningDelta, t.Config.WeakeningDelta)

	thread.State = state
	thread.LastSeenDate = scanDate
	thread.AppearanceCount++
	thread.Appearances = append(thread.Appearances, Appearance{
		ScanDate:  scanDate,
		SignalID:  obs.SignalID,
		Title:     obs.Title,
		PSSTScore: obs.PSST,
		Source:    obs.Source,
	})
	if state == StateRecurring || state == StateStrengthening {
		thread.CanonicalTitle = obs.Title
	}
	if obs.Category != "" {
		if !thread.HasCategory(obs.Category) {
			thread.AllCategories = append(thread.AllCategories, obs.Category)
		}
		if thread.PrimaryCategory == "" || state == StateTransformed {
			thread.PrimaryCategory = obs.Category
		}
	}
	thread.Keywords = mergeKeywords(thread.Keywords, obs.KeywordSet())

	metrics := ComputeMetrics(thread, t.Config.MinAppearancesForVelocity)
	thread.MetricsHistory = append(thread.MetricsHistory, MetricsSnapshot{
		Date:      scanDate,
		Velocity:  metrics.Velocity,
		Direction: metrics.Direction,
		Expansion: metrics.Expansion,
	})

	previous := 0.0
	if len(prior) > 0 {
		previous = prior[len(prior)-1].PSSTScore
	}
	start := max(0, len(prior)-historySummaryLimit)
	history := make([]HistoryPoint, 0, len(prior)-start+1)
	for _, a := range prior[start:] {
		title := a.Title
		if title == "" {
			title = thread.CanonicalTitle
		}
		history = append(history, HistoryPoint{Date: a.ScanDate, Title: title, Score: a.PSSTScore})
	}
	history = append(history, HistoryPoint{Date: scanDate, Title: obs.Title, Score: obs.PSST})

	return Entry{
		SignalID:        obs.SignalID,
		ThreadID:        thread.ID,
		CanonicalTitle:  thread.CanonicalTitle,
		State:           state,
		Confidence:      confidence,
		AppearanceCount: thread.AppearanceCount,
		Metrics: EntryMetrics{
			Velocity:     metrics.Velocity,
			Direction:    metrics.Direction,
			Expansion:    metrics.Expansion,
			DaysTracked:  daysTracked(thread.CreatedDate, scanDate),
			PSSTCurrent:  obs.PSST,
			PSSTPrevious: previous,
			PSSTDelta:    FormatDelta(obs.PSST - previous),
		},
		History: history,
	}
}

// open mints a NEW thread for obs and returns its entry.
func (t *Tracker) open(idx *Index, obs Observation, scanDate string) Entry {
	id := idx.MintThreadID()
	categories := []string{}
	if obs.Category != "" {
		categories = append(categories, obs.Category)
	}
	thread := &Thread{
		ID:              id,
		CanonicalTitle:  obs.Title,
		Keywords:        capKeywords(obs.KeywordSet().Sorted()),
		PrimaryCategory: obs.Category,
		AllCategories:   categories,
		CreatedDate:     scanDate,
		LastSeenDate:    scanDate,
		State:           StateNew,
		AppearanceCount: 1,
		Appearances: []Appearance{{
			ScanDate:  scanDate,
			SignalID:  obs.SignalID,
			Title:     obs.Title,
			PSSTScore: obs.PSST,
			Source:    obs.Source,
		}},
		MetricsHistory: []MetricsSnapshot{},
	}
	idx.Threads[id] = thread

	return Entry{
		SignalID:        obs.SignalID,
		ThreadID:        id,
		CanonicalTitle:  obs.Title,
		State:           StateNew,
		Confidence:      ConfidenceNone,
		AppearanceCount: 1,
		Metrics: EntryMetrics{
			Direction:   DirectionStable,
			PSSTCurrent: obs.PSST,
			PSSTDelta:   FormatDelta(0),
		},
		History: []HistoryPoint{{Date: scanDate, Title: obs.Title, Score: obs.PSST}},
	}
}

// FormatDelta renders a pSST delta with an explicit sign for rises.
func FormatDelta(delta float64) string {
	delta = math.Round(delta*10000) / 10000
	if delta == 0 {
		return "0"
	}
	s := strconv.FormatFloat(delta, 'f', -1, 64)
	if delta > 0 {
		return "+" + s
	}
	return s
}

func daysTracked(created, scanDate string) int {
	a, err := signal.ParseDate(created)
	if err != nil {
		return 0
	}
	b, err := signal.ParseDate(scanDate)
	if err != nil {
		return 0
	}
	d := signal.DaysBetween(a, b)
	if d < 0 {
		return -d
	}
	return d
}

func validateMap(m *Map) error {
	if err := schema.Validate(schema.EvolutionMap, m); err != nil {
		return pipeline.Wrap(pipeline.ErrValidation, "evolution", "validate map", "", err)
	}
	return nil
}

// mergeKeywords adds new keywords to a thread's existing ones. Existing
// keywords are kept and new ones fill the remaining slots in lexical order.
func mergeKeywords(existing []string, added textutil.Set) []string {
	merged := textutil.NewSet(existing...)
	for _, kw := range added.Sorted() {
		if len(merged) >= maxThreadKeywords {
			break
		}
		merged.Add(kw)
	}
	return capKeywords(merged.Sorted())
}

func capKeywords(sorted []string) []string {
	if len(sorted) > maxThreadKeywords {
		return sorted[:maxThreadKeywords]
	}
	return sorted
}
