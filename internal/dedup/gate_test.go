package dedup

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"envscan/internal/config"
	"envscan/internal/schema"
	"envscan/internal/signal"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestGate(enforce string) *Gate {
	return &Gate{
		Thresholds: DefaultThresholds(),
		Enforce:    enforce,
		Workflow:   "wf1-general",
		Now:        func() time.Time { return fixedNow },
	}
}

func scenarioSignals() ([]signal.Signal, signal.History) {
	newSignals := []signal.Signal{
		{
			ID:       "new-001",
			URL:      "https://example.com/new-start-2",
			Title:    "New START Treaty Expiration Risk",
			Keywords: []string{"nuclear arms", "treaty"},
		},
		{ID: "new-002", Title: "Completely Novel Discovery in Marine Biology"},
	}
	history := signal.History{Signals: []signal.Signal{
		{ID: "prev-001", Title: "New START Nuclear Treaty Expires", URL: "https://example.com/new-start-1"},
	}}
	return newSignals, history
}

func TestGateRunEndToEnd(t *testing.T) {
	newSignals, history := scenarioSignals()
	report, filtered := newTestGate(config.EnforceStrict).Run(context.Background(), newSignals, history)

	if report.Status != StatusPassWithRemoval {
		t.Fatalf("Status = %q, want %q", report.Status, StatusPassWithRemoval)
	}
	if report.Statistics.DefiniteDuplicates < 1 || report.Statistics.DefiniteNew < 1 {
		t.Errorf("Statistics = %+v, want at least one duplicate and one new", report.Statistics)
	}
	if report.Duplicates[0].SignalID != "new-001" || report.Duplicates[0].MatchedSignalID != "prev-001" {
		t.Errorf("Duplicates[0] = %+v", report.Duplicates[0])
	}
	if report.StageBreakdown[StageTopic] != 1 {
		t.Errorf("StageBreakdown = %v, want one B_topic", report.StageBreakdown)
	}
	if len(filtered.Signals) != 1 || filtered.Signals[0].ID != "new-002" {
		t.Errorf("filtered signals = %+v, want only new-002", filtered.Signals)
	}
	if len(report.Surviving) != 1 || report.Surviving[0] != "new-002" {
		t.Errorf("Surviving = %v", report.Surviving)
	}
	if report.Statistics.PassThrough != 1 || report.Statistics.Removed != 1 {
		t.Errorf("PassThrough/Removed = %d/%d, want 1/1", report.Statistics.PassThrough, report.Statistics.Removed)
	}
	if filtered.GateID != report.GateID || report.GateID == "" {
		t.Errorf("gate ids differ: report %q filtered %q", report.GateID, filtered.GateID)
	}
	if err := schema.Validate(schema.GateReport, report); err != nil {
		t.Errorf("report fails schema: %v", err)
	}
}

func TestGateRunLenientKeepsDuplicates(t *testing.T) {
	newSignals, history := scenarioSignals()
	report, filtered := newTestGate(config.EnforceLenient).Run(context.Background(), newSignals, history)

	if report.Status != StatusWarn {
		t.Errorf("Status = %q, want %q", report.Status, StatusWarn)
	}
	if len(report.Duplicates) != 1 {
		t.Errorf("Duplicates = %d, want 1 (lenient still reports)", len(report.Duplicates))
	}
	if len(filtered.Signals) != 2 || len(filtered.Removed) != 0 {
		t.Errorf("filtered = %d kept / %d removed, want 2/0", len(filtered.Signals), len(filtered.Removed))
	}
	if report.Enforce != config.EnforceLenient {
		t.Errorf("Enforce = %q", report.Enforce)
	}
}

func TestGateRunUncertainPassesThrough(t *testing.T) {
	newSignals, history := scenarioSignals()
	newSignals[0].Keywords = nil

	report, filtered := newTestGate(config.EnforceStrict).Run(context.Background(), newSignals, history)
	if report.Status != StatusPass {
		t.Errorf("Status = %q, want %q", report.Status, StatusPass)
	}
	if report.Statistics.Uncertain != 1 || len(report.Uncertain) != 1 {
		t.Fatalf("uncertain = %d/%d, want 1", report.Statistics.Uncertain, len(report.Uncertain))
	}
	u := report.Uncertain[0]
	if u.SignalID != "new-001" || u.Stage != StageTitle {
		t.Errorf("uncertain = %+v, want new-001 at %s", u, StageTitle)
	}
	if u.Score < 0.80 || u.Score >= 0.90 {
		t.Errorf("uncertain score = %v, want within the C_title uncertain band", u.Score)
	}
	if len(report.Duplicates) != 0 {
		t.Errorf("Duplicates = %+v, want none without the treaty keywords", report.Duplicates)
	}
	if len(filtered.Signals) != 2 {
		t.Errorf("filtered signals = %d, want 2", len(filtered.Signals))
	}
}

func TestGateRunMissingHistoryWarns(t *testing.T) {
	newSignals, _ := scenarioSignals()
	report, filtered := newTestGate(config.EnforceStrict).Run(context.Background(), newSignals, signal.History{Missing: true})

	if report.Status != StatusWarn {
		t.Errorf("Status = %q, want %q", report.Status, StatusWarn)
	}
	if len(filtered.Signals) != len(newSignals) {
		t.Errorf("filtered = %d, want all %d", len(filtered.Signals), len(newSignals))
	}
	if len(report.Warnings) == 0 {
		t.Error("expected a warning explaining the missing history")
	}
}

func TestGateRunNoNewSignals(t *testing.T) {
	_, history := scenarioSignals()
	report, _ := newTestGate(config.EnforceStrict).Run(context.Background(), nil, history)
	if report.Status != StatusPass {
		t.Errorf("Status = %q, want %q", report.Status, StatusPass)
	}
	if report.Statistics.TotalInput != 0 {
		t.Errorf("TotalInput = %d", report.Statistics.TotalInput)
	}
}

func TestGateRunNoNewSignalsWithoutHistory(t *testing.T) {
	report, filtered := newTestGate(config.EnforceStrict).Run(context.Background(), nil, signal.History{Missing: true})
	if report.Status != StatusPass {
		t.Errorf("Status = %q, want %q for an empty batch", report.Status, StatusPass)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", report.Warnings)
	}
	if len(filtered.Signals) != 0 {
		t.Errorf("filtered signals = %d, want 0", len(filtered.Signals))
	}
	if err := schema.Validate(schema.GateReport, report); err != nil {
		t.Errorf("report fails schema: %v", err)
	}
}

func TestGateRunLookbackDropsStaleHistory(t *testing.T) {
	newSignals, history := scenarioSignals()
	history.Signals[0].CollectedAt = fixedNow.AddDate(0, 0, -30).Format(time.RFC3339)

	gate := newTestGate(config.EnforceStrict)
	gate.LookbackDays = 7
	report, _ := gate.Run(context.Background(), newSignals, history)
	if report.Status != StatusWarn {
		t.Errorf("Status = %q, want %q once history ages out", report.Status, StatusWarn)
	}
	if report.HistorySize != 0 {
		t.Errorf("HistorySize = %d, want 0", report.HistorySize)
	}
}

func TestFilterLookback(t *testing.T) {
	history := []signal.Signal{
		{ID: "recent", CollectedAt: "2026-03-08T10:00:00Z"},
		{ID: "old", CollectedAt: "2026-01-01"},
		{ID: "undated"},
		{ID: "garbled", CollectedAt: "??"},
	}
	got := FilterLookback(history, 7, fixedNow)
	ids := make([]string, 0, len(got))
	for _, sig := range got {
		ids = append(ids, sig.ID)
	}
	want := []string{"recent", "undated", "garbled"}
	if len(ids) != len(want) {
		t.Fatalf("FilterLookback() ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("FilterLookback() ids = %v, want %v", ids, want)
			break
		}
	}

	if all := FilterLookback(history, 0, fixedNow); len(all) != len(history) {
		t.Errorf("FilterLookback(days=0) = %d signals, want %d", len(all), len(history))
	}
}

func TestRunFilesWritesReportAndFiltered(t *testing.T) {
	dir := t.TempDir()
	signalsPath := filepath.Join(dir, "daily-scan-2026-03-10.json")
	previousPath := filepath.Join(dir, "previous-signals.json")
	reportPath := filepath.Join(dir, "out", "dedup-gate-2026-03-10.json")

	writeFile(t, signalsPath, `{"items": [
	  {"id": "new-001", "title": "New START Treaty Expiration Risk", "source": {"url": "https://example.com/new-start-2"},
	   "content": {"keywords": ["nuclear arms", "treaty"]}, "collector_note": "keep me"},
	  {"id": "new-002", "title": "Completely Novel Discovery in Marine Biology"}
	]}`)
	writeFile(t, previousPath, `{"signals": [
	  {"id": "prev-001", "title": "New START Nuclear Treaty Expires", "url": "https://example.com/new-start-1"}
	], "url_index": {"example.com/new-start-1": "prev-001"}}`)

	res, err := newTestGate(config.EnforceStrict).RunFiles(context.Background(), Request{
		SignalsPath:  signalsPath,
		PreviousPath: previousPath,
		OutputPath:   reportPath,
	})
	if err != nil {
		t.Fatalf("RunFiles() error = %v", err)
	}
	if res.Report.Status != StatusPassWithRemoval {
		t.Errorf("Status = %q", res.Report.Status)
	}

	raw, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if err := schema.ValidateJSON(schema.GateReport, raw); err != nil {
		t.Errorf("written report fails schema: %v", err)
	}

	wantFiltered := filepath.Join(dir, "out", "gate-filtered-2026-03-10.json")
	if res.FilteredPath != wantFiltered {
		t.Errorf("FilteredPath = %q, want %q", res.FilteredPath, wantFiltered)
	}
	var filtered struct {
		Signals []map[string]any `json:"signals"`
		Removed []Match          `json:"definite_duplicates_removed"`
	}
	data, err := os.ReadFile(wantFiltered)
	if err != nil {
		t.Fatalf("read filtered: %v", err)
	}
	if err := json.Unmarshal(data, &filtered); err != nil {
		t.Fatalf("decode filtered: %v", err)
	}
	if len(filtered.Signals) != 1 || filtered.Signals[0]["id"] != "new-002" {
		t.Errorf("filtered signals = %v", filtered.Signals)
	}
	if len(filtered.Removed) != 1 || filtered.Removed[0].SignalID != "new-001" {
		t.Errorf("removed = %+v", filtered.Removed)
	}
}

func TestRunFilesCorruptHistoryDegrades(t *testing.T) {
	dir := t.TempDir()
	signalsPath := filepath.Join(dir, "signals.json")
	previousPath := filepath.Join(dir, "previous.json")
	writeFile(t, signalsPath, `[{"id": "a", "title": "Heat pumps outsell boilers"}]`)
	writeFile(t, previousPath, `{"signals": [`)

	res, err := newTestGate(config.EnforceStrict).RunFiles(context.Background(), Request{
		SignalsPath:  signalsPath,
		PreviousPath: previousPath,
	})
	if err != nil {
		t.Fatalf("RunFiles() error = %v", err)
	}
	if res.Report.Status != StatusWarn {
		t.Errorf("Status = %q, want %q", res.Report.Status, StatusWarn)
	}
	if res.FilteredPath != "" {
		t.Errorf("FilteredPath = %q, want none without an output path", res.FilteredPath)
	}
}

func TestRunFilesRejectsInvalidThresholds(t *testing.T) {
	gate := newTestGate(config.EnforceStrict)
	gate.Thresholds.TitleDefinite = 2
	if _, err := gate.RunFiles(context.Background(), Request{SignalsPath: "unused"}); err == nil {
		t.Fatal("expected threshold validation error")
	}
}

func TestRunFilesMissingSignals(t *testing.T) {
	_, err := newTestGate(config.EnforceStrict).RunFiles(context.Background(), Request{
		SignalsPath: filepath.Join(t.TempDir(), "absent.json"),
	})
	if err == nil {
		t.Fatal("expected error for missing signals file")
	}
}

func TestDefaultFilteredPath(t *testing.T) {
	got := DefaultFilteredPath("/tmp/reports/gate.json", "/data/daily-scan-2026-03-10.json")
	if got != "/tmp/reports/gate-filtered-2026-03-10.json" {
		t.Errorf("DefaultFilteredPath() = %q", got)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
