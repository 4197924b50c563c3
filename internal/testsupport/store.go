package testsupport

import (
	"testing"

	"envscan/internal/archive"
	"envscan/internal/config"
)

// MustOpenArchive opens the configured signals archive and registers cleanup.
func MustOpenArchive(t testing.TB, cfg *config.Config) *archive.Store {
	t.Helper()
	store, err := archive.Open(cfg.Paths.ArchivePath)
	if err != nil {
		t.Fatalf("archive.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
