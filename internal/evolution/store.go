package evolution

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"envscan/internal/fileutil"
	"envscan/internal/logging"
	"envscan/internal/pipeline"
	"envscan/internal/schema"
)

// ErrLocked is returned when another run holds the index lock.
var ErrLocked = errors.New("evolution index is locked by another run")

// Store reads and writes one workflow's thread index file.
type Store struct {
	Path string
	// BackupDir receives dated backups. Empty means the index directory.
	BackupDir string
	Logger    *slog.Logger

	lock *flock.Flock
}

// NewStore returns a store for the index at path.
func NewStore(path, backupDir string, logger *slog.Logger) *Store {
	return &Store{
		Path:      path,
		BackupDir: backupDir,
		Logger:    logging.NewComponentLogger(logger, "evolution"),
	}
}

// Lock takes the exclusive run lock (<index>.lock). The index directory is
// created if needed.
func (s *Store) Lock() error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}
	lockPath := s.Path + ".lock"
	s.lock = flock.New(lockPath)
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire index lock: %w", err)
	}
	if !ok {
		return pipeline.Wrap(pipeline.ErrTransient, "evolution", "lock index", lockPath, ErrLocked)
	}
	return nil
}

// Unlock releases the run lock.
func (s *Store) Unlock() {
	if s.lock == nil {
		return
	}
	if err := s.lock.Unlock(); err != nil {
		s.logger().Warn("failed to release index lock", logging.Error(err))
	}
	s.lock = nil
}

// Exists reports whether the index file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.Path)
	return err == nil
}

// Load reads the index. A missing file yields a fresh index for workflow and
// exists=false. A file that fails schema validation is reported as corrupt
// and never replaced.
func (s *Store) Load(workflow string, now time.Time) (*Index, bool, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewIndex(workflow, now), false, nil
		}
		return nil, false, fmt.Errorf("read evolution index: %w", err)
	}
	idx, err := DecodeIndex(data)
	if err != nil {
		return nil, true, pipeline.Wrap(pipeline.ErrCorruptInput, "evolution", "load index", s.Path, err)
	}
	if idx.Workflow == "" {
		idx.Workflow = workflow
	}
	return idx, true, nil
}

// DecodeIndex validates and decodes an index document.
func DecodeIndex(data []byte) (*Index, error) {
	if err := schema.ValidateJSON(schema.ThreadIndex, data); err != nil {
		return nil, err
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decode evolution index: %w", err)
	}
	if idx.Threads == nil {
		idx.Threads = make(map[string]*Thread)
	}
	for id, t := range idx.Threads {
		t.ID = id
		if t.AppearanceCount < len(t.Appearances) {
			t.AppearanceCount = len(t.Appearances)
		}
	}
	return &idx, nil
}

// LoadIndexFile reads an index without locking, for read-only consumers.
func LoadIndexFile(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read evolution index: %w", err)
	}
	idx, err := DecodeIndex(data)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrCorruptInput, "evolution", "load index", path, err)
	}
	return idx, nil
}

// BackupPath returns the dated backup location for scanDate.
func (s *Store) BackupPath(scanDate string) string {
	dir := s.BackupDir
	if dir == "" {
		dir = filepath.Dir(s.Path)
	}
	return filepath.Join(dir, "evolution-index-backup-"+scanDate+".json")
}

// Backup copies the current index to its dated backup path. It is a no-op
// when no index exists yet.
func (s *Store) Backup(scanDate string) (string, error) {
	if !s.Exists() {
		return "", nil
	}
	dst := s.BackupPath(scanDate)
	if err := fileutil.CopyFileVerified(s.Path, dst); err != nil {
		return "", fmt.Errorf("backup evolution index: %w", err)
	}
	s.logger().Info("evolution index backed up",
		logging.String("index", s.Path),
		logging.String("backup", dst),
	)
	return dst, nil
}

// Save recounts the derived totals, stamps last_updated and writes the index
// atomically.
func (s *Store) Save(idx *Index, now time.Time) error {
	idx.Recount()
	if idx.IndexVersion == "" {
		idx.IndexVersion = IndexVersion
	}
	stamp := now.UTC().Format(time.RFC3339)
	if idx.CreatedAt == "" {
		idx.CreatedAt = stamp
	}
	idx.LastUpdated = stamp
	for _, t := range idx.Threads {
		t.fillEmpty()
	}
	if err := fileutil.WriteJSONAtomic(s.Path, idx); err != nil {
		return fmt.Errorf("write evolution index: %w", err)
	}
	s.logger().Info("evolution index saved",
		logging.String("index", s.Path),
		logging.Int("total_threads", idx.TotalThreads),
		logging.Int("active_threads", idx.ActiveThreads),
	)
	return nil
}

func (s *Store) logger() *slog.Logger {
	if s.Logger == nil {
		return logging.NewNop()
	}
	return s.Logger
}
