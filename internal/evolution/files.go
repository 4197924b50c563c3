package evolution

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"envscan/internal/fileutil"
	"envscan/internal/logging"
	"envscan/internal/pipeline"
	"envscan/internal/signal"
)

// Request names the files for one tracker invocation.
type Request struct {
	SignalsPath string
	ScanDate    string
	// OutputPath receives the evolution map. When empty nothing is written.
	OutputPath string
}

// TrackFiles loads the day's signals, runs Track and writes the map. The map
// is written even when tracking is disabled.
func (t *Tracker) TrackFiles(ctx context.Context, req Request) (*Map, error) {
	signals, err := signal.LoadBatch(req.SignalsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, pipeline.Wrap(pipeline.ErrNotFound, "evolution", "load signals", req.SignalsPath, err)
		}
		return nil, pipeline.Wrap(pipeline.ErrCorruptInput, "evolution", "load signals", req.SignalsPath, err)
	}

	m, err := t.Track(ctx, signals, req.ScanDate)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return m, nil
	}
	if err := fileutil.WriteJSONAtomic(req.OutputPath, m); err != nil {
		return nil, pipeline.Wrap(pipeline.ErrTransient, "evolution", "write map", req.OutputPath, err)
	}
	return m, nil
}

// IndexFile names one workflow's index on disk.
type IndexFile struct {
	Workflow string
	Path     string
}

// CorrelateFiles loads each index read-only and correlates them. A missing
// index contributes no threads. The report is validated and, when output is
// set, written atomically.
func CorrelateFiles(ctx context.Context, files []IndexFile, cfg CorrelationConfig, output string, now time.Time, logger *slog.Logger) (*CorrelationReport, error) {
	ctx = pipeline.WithStage(ctx, "correlation")
	log := logging.WithContext(ctx, logging.NewComponentLogger(logger, "correlation"))

	indexes := make([]WorkflowIndex, 0, len(files))
	for _, f := range files {
		idx, err := LoadIndexFile(f.Path)
		if err != nil {
			if _, statErr := os.Stat(f.Path); !errors.Is(statErr, fs.ErrNotExist) {
				return nil, err
			}
			logging.WarnWithContext(log, "evolution index missing", "correlation_index_missing",
				logging.String(logging.FieldWorkflow, f.Workflow),
				logging.String("path", f.Path),
				logging.String(logging.FieldImpact, "workflow contributes no threads"),
				logging.String(logging.FieldErrorHint, "run envscan track for this workflow first"),
			)
			idx = NewIndex(f.Workflow, now)
		}
		indexes = append(indexes, WorkflowIndex{Workflow: f.Workflow, Index: idx})
	}

	report := Correlate(indexes, cfg, now, logger)
	if err := report.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(output) != "" {
		if err := fileutil.WriteJSONAtomic(output, report); err != nil {
			return nil, pipeline.Wrap(pipeline.ErrTransient, "correlation", "write report", output, err)
		}
	}
	return report, nil
}
