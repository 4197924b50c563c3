package main

import (
	"errors"
	"path/filepath"
	"testing"

	"envscan/internal/pipeline"
	"envscan/internal/testsupport"
)

func trackDay(t *testing.T, env cliTestEnv, workflow, date string, signals ...testsupport.SignalDoc) {
	t.Helper()
	path := testsupport.WriteJSON(t, filepath.Join(env.dir, workflow, "classified-"+date+".json"), testsupport.Batch(signals...))
	if _, _, err := runCLI(t, []string{
		"track", "--signals", path, "--workflow", workflow, "--scan-date", date,
	}, env.configPath); err != nil {
		t.Fatalf("track %s %s: %v", workflow, date, err)
	}
}

func quantumSignal(id string) testsupport.SignalDoc {
	return testsupport.Signal(id, "Quantum sensing breakthrough", "", "quantum", "sensing").With("category", "T")
}

func TestCorrelateCommandDefaultWorkflows(t *testing.T) {
	env := setupCLITestEnv(t)
	trackDay(t, env, "wf1-general", "2026-03-04", quantumSignal("sig-1"))
	trackDay(t, env, "wf2-arxiv", "2026-03-09", quantumSignal("arxiv-1"))

	reportPath := filepath.Join(env.dir, "out", "correlation.json")
	out, _, err := runCLI(t, []string{"correlate", "--output", reportPath}, env.configPath)
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	requireContains(t, out, "1 correlations across wf1-general, wf2-arxiv, wf3-naver")

	report := testsupport.ReadJSON(t, reportPath)
	corrs := report["correlations"].([]any)
	if len(corrs) != 1 {
		t.Fatalf("correlations = %v, want one", corrs)
	}
	c := corrs[0].(map[string]any)
	if c["source_wf"] != "wf1-general" || c["lead_days"] != float64(5) || c["direction"] != "wf1-general→wf2-arxiv" {
		t.Errorf("correlation = %v", c)
	}
}

func TestCorrelateCommandExplicitIndexes(t *testing.T) {
	env := setupCLITestEnv(t)
	trackDay(t, env, "wf1-general", "2026-03-04", quantumSignal("sig-1"))

	out, _, err := runCLI(t, []string{
		"correlate",
		"--index", "general=" + env.cfg.IndexPath("wf1-general"),
		"--index", "naver=" + filepath.Join(env.dir, "absent.json"),
		"--json",
	}, env.configPath)
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	requireContains(t, out, `"total_correlations": 0`)
	requireContains(t, out, `"naver"`)
}

func TestCorrelateCommandBadIndexSpec(t *testing.T) {
	env := setupCLITestEnv(t)
	for _, spec := range []string{"no-equals", "=path", "wf="} {
		_, _, err := runCLI(t, []string{"correlate", "--index", spec}, env.configPath)
		if !errors.Is(err, pipeline.ErrValidation) {
			t.Errorf("--index %q: err = %v, want validation error", spec, err)
		}
	}
	_, _, err := runCLI(t, []string{"correlate", "--index", "a=x.json", "--index", "a=y.json"}, env.configPath)
	if !errors.Is(err, pipeline.ErrValidation) {
		t.Errorf("duplicate workflow: err = %v, want validation error", err)
	}
}

func TestCorrelateCommandRegistryDisables(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithRegistry("system:\n  signal_evolution:\n    enabled: true\n"))
	out, _, err := runCLI(t, []string{"correlate"}, env.configPath)
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	requireContains(t, out, "disabled")
}
