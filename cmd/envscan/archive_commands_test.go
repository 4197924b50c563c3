package main

import (
	"context"
	"path/filepath"
	"testing"

	"envscan/internal/testsupport"
)

func TestArchiveImportExportStats(t *testing.T) {
	env := setupCLITestEnv(t)
	batch := testsupport.Batch(
		testsupport.Signal("sig-1", "Quantum sensing breakthrough", "https://example.com/q").
			With("category", "T").With("source", map[string]any{"name": "arxiv"}),
		testsupport.Signal("sig-2", "Coral reef bleaching accelerates", "https://example.com/c").With("category", "E"),
	)
	path := testsupport.WriteJSON(t, filepath.Join(env.dir, "day.json"), batch)

	out, _, err := runCLI(t, []string{"archive", "import", "--file", path, "--scan-date", "2026-03-10"}, env.configPath)
	if err != nil {
		t.Fatalf("archive import: %v", err)
	}
	requireContains(t, out, "Imported 2 signals for 2026-03-10 (0 already archived, 0 without id)")

	out, _, err = runCLI(t, []string{"archive", "import", "--file", path, "--scan-date", "2026-03-10"}, env.configPath)
	if err != nil {
		t.Fatalf("archive re-import: %v", err)
	}
	requireContains(t, out, "Imported 0 signals")

	out, _, err = runCLI(t, []string{"archive", "stats"}, env.configPath)
	if err != nil {
		t.Fatalf("archive stats: %v", err)
	}
	requireContains(t, out, "2 signals (2026-03-10 to 2026-03-10)")
	requireContains(t, out, "arxiv")

	exportPath := filepath.Join(env.dir, "previous.json")
	if _, _, err := runCLI(t, []string{"archive", "export", "--days", "36500", "--output", exportPath}, env.configPath); err != nil {
		t.Fatalf("archive export: %v", err)
	}
	export := testsupport.ReadJSON(t, exportPath)
	if signals := export["signals"].([]any); len(signals) != 2 {
		t.Errorf("exported %d signals, want 2", len(signals))
	}
	if idx := export["url_index"].(map[string]any); len(idx) != 2 {
		t.Errorf("url_index = %v, want two entries", idx)
	}

	store := testsupport.MustOpenArchive(t, env.cfg)
	titles, err := store.Titles(context.Background(), []string{"sig-2"})
	if err != nil {
		t.Fatalf("Titles: %v", err)
	}
	if titles["sig-2"] != "Coral reef bleaching accelerates" {
		t.Errorf("Titles = %v", titles)
	}
}

func TestArchiveImportRejectsBadDate(t *testing.T) {
	env := setupCLITestEnv(t)
	path := testsupport.WriteJSON(t, filepath.Join(env.dir, "day.json"), testsupport.Batch())
	if _, _, err := runCLI(t, []string{"archive", "import", "--file", path, "--scan-date", "03/10/2026"}, env.configPath); err == nil {
		t.Fatal("expected error for malformed scan date")
	}
}
