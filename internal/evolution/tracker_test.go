package evolution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"envscan/internal/pipeline"
	"envscan/internal/schema"
	"envscan/internal/signal"
)

func newTestTracker(t *testing.T, dir string) *Tracker {
	t.Helper()
	return &Tracker{
		Config:   DefaultConfig(),
		Store:    NewStore(filepath.Join(dir, "evolution-index.json"), "", nil),
		Workflow: "wf1-general",
		Now:      func() time.Time { return time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC) },
	}
}

func sig(id, title, category string, psst float64) signal.Signal {
	return signal.Signal{ID: id, Title: title, Category: category, PSSTScore: psst, HasPSST: true}
}

func track(t *testing.T, tr *Tracker, date string, signals ...signal.Signal) *Map {
	t.Helper()
	m, err := tr.Track(context.Background(), signals, date)
	if err != nil {
		t.Fatalf("Track(%s) error = %v", date, err)
	}
	if err := schema.Validate(schema.EvolutionMap, m); err != nil {
		t.Fatalf("Track(%s) map fails schema: %v", date, err)
	}
	return m
}

func TestTrackAcrossDays(t *testing.T) {
	dir := t.TempDir()
	tr := newTestTracker(t, dir)

	day1 := track(t, tr, "2026-03-08",
		sig("sig-1", "Quantum sensing breakthrough", "T", 60),
		sig("sig-2", "Coral reef bleaching accelerates", "E", 50),
	)
	if day1.Summary.New != 2 || day1.Summary.Active != 2 {
		t.Fatalf("day1 summary = %+v, want 2 new 2 active", day1.Summary)
	}
	if got := day1.NewThreads; len(got) != 2 || got[0] != "THREAD-WF1-001" || got[1] != "THREAD-WF1-002" {
		t.Fatalf("day1 NewThreads = %v", got)
	}
	if day1.BackupPath != "" {
		t.Errorf("day1 BackupPath = %q, want none for a fresh index", day1.BackupPath)
	}
	if e := day1.Entries[0]; e.State != StateNew || e.Confidence != ConfidenceNone || e.Metrics.PSSTDelta != "0" {
		t.Errorf("day1 entry = %+v", e)
	}

	day2 := track(t, tr, "2026-03-09",
		sig("sig-3", "Quantum sensing breakthrough", "T", 70),
	)
	if day2.Summary.Strengthening != 1 || day2.Summary.New != 0 {
		t.Fatalf("day2 summary = %+v, want one strengthening", day2.Summary)
	}
	e := day2.Entries[0]
	if e.ThreadID != "THREAD-WF1-001" || e.Confidence != ConfidenceHigh || e.AppearanceCount != 2 {
		t.Errorf("day2 entry = %+v", e)
	}
	if e.Metrics.PSSTDelta != "+10" || e.Metrics.PSSTPrevious != 60 || e.Metrics.Velocity != 1 {
		t.Errorf("day2 metrics = %+v", e.Metrics)
	}
	if e.Metrics.DaysTracked != 1 || len(e.History) != 2 || e.History[1].Score != 70 {
		t.Errorf("day2 history = %+v, days %d", e.History, e.Metrics.DaysTracked)
	}
	wantBackup := filepath.Join(dir, "evolution-index-backup-2026-03-09.json")
	if day2.BackupPath != wantBackup {
		t.Errorf("day2 BackupPath = %q, want %q", day2.BackupPath, wantBackup)
	}
	if _, err := os.Stat(wantBackup); err != nil {
		t.Errorf("backup missing: %v", err)
	}

	day3 := track(t, tr, "2026-03-14",
		sig("sig-4", "Arctic shipping lanes open early", "E", 66),
	)
	if day3.Summary.Faded != 2 || day3.Summary.Active != 1 {
		t.Fatalf("day3 summary = %+v, want 2 faded 1 active", day3.Summary)
	}
	if day3.NewThreads[0] != "THREAD-WF1-003" {
		t.Errorf("day3 NewThreads = %v, want THREAD-WF1-003", day3.NewThreads)
	}

	idx, err := LoadIndexFile(tr.Store.Path)
	if err != nil {
		t.Fatalf("LoadIndexFile() error = %v", err)
	}
	if idx.ThreadIDCounter != 4 || idx.TotalThreads != 3 || idx.ActiveThreads != 1 {
		t.Errorf("index counter/total/active = %d/%d/%d", idx.ThreadIDCounter, idx.TotalThreads, idx.ActiveThreads)
	}
	quantum := idx.Threads["THREAD-WF1-001"]
	if quantum.State != StateFaded || len(quantum.Appearances) != 2 || len(quantum.MetricsHistory) != 1 {
		t.Errorf("quantum thread = %+v", quantum)
	}

	day4 := track(t, tr, "2026-03-15",
		sig("sig-5", "Quantum sensing breakthrough", "T", 75),
	)
	if day4.Summary.New != 1 || day4.Entries[0].ThreadID != "THREAD-WF1-004" {
		t.Errorf("day4 entry = %+v, want a new thread instead of the faded one", day4.Entries[0])
	}
}

func TestTrackCapsThreadKeywords(t *testing.T) {
	dir := t.TempDir()
	tr := newTestTracker(t, dir)

	first := sig("sig-1", "Quantum sensing breakthrough", "T", 60)
	second := sig("sig-2", "Quantum sensing breakthrough", "T", 65)
	for i := 1; i <= 15; i++ {
		first.Keywords = append(first.Keywords, fmt.Sprintf("alpha%02d", i))
		second.Keywords = append(second.Keywords, fmt.Sprintf("beta%02d", i))
	}
	track(t, tr, "2026-03-08", first)
	idx, err := LoadIndexFile(tr.Store.Path)
	if err != nil {
		t.Fatalf("LoadIndexFile() error = %v", err)
	}
	kept := idx.Threads["THREAD-WF1-001"].Keywords

	day2 := track(t, tr, "2026-03-09", second)
	if day2.Entries[0].ThreadID != "THREAD-WF1-001" {
		t.Fatalf("day2 thread = %s, want THREAD-WF1-001", day2.Entries[0].ThreadID)
	}
	idx, err = LoadIndexFile(tr.Store.Path)
	if err != nil {
		t.Fatalf("LoadIndexFile() error = %v", err)
	}
	got := idx.Threads["THREAD-WF1-001"].Keywords
	if len(got) != maxThreadKeywords {
		t.Fatalf("thread keywords = %d, want %d: %v", len(got), maxThreadKeywords, got)
	}
	have := make(map[string]bool, len(got))
	for _, kw := range got {
		have[kw] = true
	}
	for _, kw := range kept {
		if !have[kw] {
			t.Errorf("keyword %q from the first appearance was dropped", kw)
		}
	}
}

func TestTrackTitleEnrichment(t *testing.T) {
	tr := newTestTracker(t, t.TempDir())
	tr.Titles = StaticTitles{"sig-9": "Arctic shipping lanes open early"}

	m := track(t, tr, "2026-03-10",
		signal.Signal{ID: "sig-9"},
		signal.Signal{ID: "sig-10"},
		signal.Signal{ID: "THREAD-WF9-001"},
		signal.Signal{ID: "orphan", Title: "THREAD-WF1-001"},
	)
	want := []string{"Arctic shipping lanes open early", "sig-10", "untitled", "orphan"}
	for i, e := range m.Entries {
		if e.CanonicalTitle != want[i] {
			t.Errorf("entry %d canonical_title = %q, want %q", i, e.CanonicalTitle, want[i])
		}
		if e.History[len(e.History)-1].Title != want[i] {
			t.Errorf("entry %d history title = %q", i, e.History[0].Title)
		}
	}
}

func TestTrackPSSTBackfill(t *testing.T) {
	tr := newTestTracker(t, t.TempDir())
	tr.PSST = map[string]float64{"sig-1": 81, "sig-2": 40}

	m := track(t, tr, "2026-03-10",
		signal.Signal{ID: "sig-1", Title: "Quantum sensing breakthrough"},
		sig("sig-2", "Coral reef bleaching accelerates", "E", 55),
	)
	if got := m.Entries[0].Metrics.PSSTCurrent; got != 81 {
		t.Errorf("backfilled psst = %v, want 81", got)
	}
	if got := m.Entries[1].Metrics.PSSTCurrent; got != 55 {
		t.Errorf("present psst = %v, want 55 kept", got)
	}
}

func TestTrackDisabledLeavesIndexUntouched(t *testing.T) {
	dir := t.TempDir()
	tr := newTestTracker(t, dir)
	tr.Config.Enabled = false
	tr.Config.Source = SourceRegistry

	out := filepath.Join(dir, "evolution", "evolution-map.json")
	m, err := tr.TrackFiles(context.Background(), Request{
		SignalsPath: writeFile(t, "signals.json", `{"signals":[{"id":"sig-1","title":"Quantum sensing breakthrough"}]}`),
		ScanDate:    "2026-03-10",
		OutputPath:  out,
	})
	if err != nil {
		t.Fatalf("TrackFiles() error = %v", err)
	}
	if m.TrackingEnabled || len(m.Entries) != 0 || m.ConfigSource != SourceRegistry {
		t.Errorf("disabled map = %+v", m)
	}
	if tr.Store.Exists() {
		t.Error("disabled run created the index")
	}
	if _, err := os.Stat(tr.Store.Path + ".lock"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("disabled run created a lock file: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("map not written: %v", err)
	}
	if err := schema.ValidateJSON(schema.EvolutionMap, data); err != nil {
		t.Errorf("written map fails schema: %v", err)
	}
}

func TestTrackRejectsOutOfOrderScanDate(t *testing.T) {
	tr := newTestTracker(t, t.TempDir())
	track(t, tr, "2026-03-10", sig("sig-1", "Quantum sensing breakthrough", "T", 60))

	_, err := tr.Track(context.Background(), []signal.Signal{sig("sig-2", "Coral reef bleaching", "E", 50)}, "2026-03-09")
	if !errors.Is(err, pipeline.ErrValidation) {
		t.Fatalf("Track() error = %v, want ErrValidation", err)
	}
	if _, err := tr.Track(context.Background(), nil, "10/03/2026"); !errors.Is(err, pipeline.ErrValidation) {
		t.Errorf("Track() with bad date error = %v, want ErrValidation", err)
	}
}

func TestTrackIsDeterministic(t *testing.T) {
	signals := []signal.Signal{
		sig("sig-1", "Quantum sensing breakthrough", "T", 60),
		sig("sig-2", "Quantum sensing breakthrough reported", "T", 61),
		sig("sig-3", "Coral reef bleaching accelerates", "E", 50),
	}
	run := func() []byte {
		tr := newTestTracker(t, t.TempDir())
		m := track(t, tr, "2026-03-10", signals...)
		data, err := json.Marshal(m.Entries)
		if err != nil {
			t.Fatal(err)
		}
		return data
	}
	first, second := run(), run()
	if string(first) != string(second) {
		t.Errorf("entries differ between runs:\n%s\n%s", first, second)
	}
}

func TestTrackFilesMissingSignals(t *testing.T) {
	tr := newTestTracker(t, t.TempDir())
	_, err := tr.TrackFiles(context.Background(), Request{
		SignalsPath: filepath.Join(t.TempDir(), "absent.json"),
		ScanDate:    "2026-03-10",
	})
	if !errors.Is(err, pipeline.ErrNotFound) {
		t.Errorf("TrackFiles() error = %v, want ErrNotFound", err)
	}
}
