package evolution

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var correlateNow = time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)

func correlationIndex(workflow string, threads map[string]*Thread) WorkflowIndex {
	idx := indexWith(threads)
	idx.Workflow = workflow
	return WorkflowIndex{Workflow: workflow, Index: idx}
}

func titledThread(title, category, created string) *Thread {
	th := threadFor(title)
	th.PrimaryCategory = category
	th.CreatedDate = created
	return th
}

func TestCorrelateEarlierThreadLeads(t *testing.T) {
	general := correlationIndex("wf1", map[string]*Thread{
		"THREAD-WF1-001": titledThread("Quantum sensing breakthrough", "T", "2026-03-09"),
		"THREAD-WF1-002": titledThread("Coral reef bleaching accelerates", "E", "2026-03-01"),
	})
	arxiv := correlationIndex("wf2", map[string]*Thread{
		"THREAD-WF2-001": titledThread("Quantum sensing breakthrough", "T", "2026-03-04"),
	})

	report := Correlate([]WorkflowIndex{general, arxiv}, DefaultConfig().Correlation, correlateNow, nil)
	if report.TotalCorrelations != 1 {
		t.Fatalf("Correlate() = %+v, want one correlation", report.Correlations)
	}
	c := report.Correlations[0]
	if c.SourceWorkflow != "wf2" || c.SourceThreadID != "THREAD-WF2-001" || c.TargetThreadID != "THREAD-WF1-001" {
		t.Errorf("correlation = %+v, want wf2 thread as source", c)
	}
	if c.LeadDays != 5 || c.Direction != "wf2→wf1" || c.Confidence != ConfidenceHigh {
		t.Errorf("lead/direction/confidence = %d %q %s", c.LeadDays, c.Direction, c.Confidence)
	}
	if err := report.Validate(); err != nil {
		t.Errorf("report fails schema: %v", err)
	}
}

func TestCorrelateCategoryFilter(t *testing.T) {
	a := correlationIndex("wf1", map[string]*Thread{
		"THREAD-WF1-001": titledThread("Quantum sensing breakthrough", "T", "2026-03-01"),
	})
	b := correlationIndex("wf2", map[string]*Thread{
		"THREAD-WF2-001": titledThread("Quantum sensing breakthrough", "E", "2026-03-02"),
	})
	cfg := DefaultConfig().Correlation

	if got := Correlate([]WorkflowIndex{a, b}, cfg, correlateNow, nil).TotalCorrelations; got != 0 {
		t.Errorf("filtered TotalCorrelations = %d, want 0", got)
	}
	cfg.CategoryFilter = false
	if got := Correlate([]WorkflowIndex{a, b}, cfg, correlateNow, nil).TotalCorrelations; got != 1 {
		t.Errorf("unfiltered TotalCorrelations = %d, want 1", got)
	}
}

func TestCorrelateRequiresBothScores(t *testing.T) {
	a := correlationIndex("wf1", map[string]*Thread{
		"THREAD-WF1-001": titledThread("New START nuclear treaty expires", "P", "2026-03-01"),
	})
	b := correlationIndex("wf2", map[string]*Thread{
		"THREAD-WF2-001": titledThread("New START treaty expiration risk", "P", "2026-03-02"),
	})
	if got := Correlate([]WorkflowIndex{a, b}, DefaultConfig().Correlation, correlateNow, nil).TotalCorrelations; got != 0 {
		t.Errorf("TotalCorrelations = %d, want 0 when keyword similarity is low", got)
	}
}

func TestCorrelateDisabled(t *testing.T) {
	a := correlationIndex("wf1", map[string]*Thread{"THREAD-WF1-001": titledThread("Quantum sensing", "T", "2026-03-01")})
	b := correlationIndex("wf2", map[string]*Thread{"THREAD-WF2-001": titledThread("Quantum sensing", "T", "2026-03-01")})
	cfg := DefaultConfig().Correlation
	cfg.Enabled = false

	report := Correlate([]WorkflowIndex{a, b}, cfg, correlateNow, nil)
	if report.Enabled || report.TotalCorrelations != 0 || report.Correlations == nil {
		t.Errorf("disabled report = %+v", report)
	}
	if err := report.Validate(); err != nil {
		t.Errorf("disabled report fails schema: %v", err)
	}
}

func TestCorrelateFilesToleratesMissingIndex(t *testing.T) {
	dir := t.TempDir()
	present := NewStore(filepath.Join(dir, "wf1.json"), "", nil)
	idx := correlationIndex("wf1", map[string]*Thread{
		"THREAD-WF1-001": titledThread("Quantum sensing breakthrough", "T", "2026-03-01"),
	}).Index
	for _, th := range idx.Threads {
		th.LastSeenDate = th.CreatedDate
		th.AppearanceCount = 1
		th.Appearances = []Appearance{{ScanDate: th.CreatedDate, SignalID: "sig-1"}}
	}
	if err := present.Save(idx, correlateNow); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "out", "cross-evolution-map.json")
	report, err := CorrelateFiles(context.Background(), []IndexFile{
		{Workflow: "wf1", Path: present.Path},
		{Workflow: "wf2", Path: filepath.Join(dir, "wf2.json")},
	}, DefaultConfig().Correlation, out, correlateNow, nil)
	if err != nil {
		t.Fatalf("CorrelateFiles() error = %v", err)
	}
	if report.TotalCorrelations != 0 || len(report.Workflows) != 2 {
		t.Errorf("report = %+v", report)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("report not written: %v", err)
	}
}
