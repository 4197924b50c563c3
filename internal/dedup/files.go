package dedup

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"envscan/internal/fileutil"
	"envscan/internal/logging"
	"envscan/internal/pipeline"
	"envscan/internal/schema"
	"envscan/internal/signal"
)

// Request names the files for one gate invocation.
type Request struct {
	SignalsPath  string
	PreviousPath string
	// OutputPath receives the report. When empty nothing is written.
	OutputPath string
	// FilteredPath receives the pass-through set. Defaults to
	// gate-filtered-<signals stem>.json next to the report.
	FilteredPath string
}

// Outputs bundles what RunFiles produced.
type Outputs struct {
	Report       *Report
	Filtered     *Filtered
	FilteredPath string
}

// RunFiles loads the signal files, runs the gate, validates the report and
// writes both outputs atomically. An unreadable previous-signals file
// degrades to an empty history.
func (g *Gate) RunFiles(ctx context.Context, req Request) (*Outputs, error) {
	ctx = pipeline.WithStage(pipeline.WithWorkflow(ctx, g.Workflow), "dedup")
	logger := logging.WithContext(ctx, logging.NewComponentLogger(g.Logger, "dedup"))

	if err := g.Thresholds.Validate(); err != nil {
		return nil, err
	}

	newSignals, err := signal.LoadBatch(req.SignalsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, pipeline.Wrap(pipeline.ErrNotFound, "dedup", "load signals", req.SignalsPath, err)
		}
		return nil, pipeline.Wrap(pipeline.ErrCorruptInput, "dedup", "load signals", req.SignalsPath, err)
	}

	history, histErr := signal.LoadHistory(req.PreviousPath)
	if histErr != nil {
		logging.WarnWithContext(logger, "previous signals unreadable", "dedup_history_corrupt",
			logging.String("path", req.PreviousPath),
			logging.Error(histErr),
			logging.String(logging.FieldImpact, "gate runs without history; duplicates will pass through"),
			logging.String(logging.FieldErrorHint, "regenerate the previous signals export"),
		)
		history = signal.History{Missing: true}
	}

	report, filtered := g.Run(ctx, newSignals, history)
	report.SignalsFile = req.SignalsPath
	report.PreviousFile = req.PreviousPath
	if histErr != nil {
		report.Warnings = append(report.Warnings, "previous signals file unreadable: "+histErr.Error())
	}

	if err := schema.Validate(schema.GateReport, report); err != nil {
		return nil, pipeline.Wrap(pipeline.ErrValidation, "dedup", "validate report", "", err)
	}

	res := &Outputs{Report: report, Filtered: filtered}
	if strings.TrimSpace(req.OutputPath) == "" {
		return res, nil
	}
	if err := fileutil.WriteJSONAtomic(req.OutputPath, report); err != nil {
		return nil, pipeline.Wrap(pipeline.ErrTransient, "dedup", "write report", req.OutputPath, err)
	}

	res.FilteredPath = req.FilteredPath
	if res.FilteredPath == "" {
		res.FilteredPath = DefaultFilteredPath(req.OutputPath, req.SignalsPath)
	}
	if err := fileutil.WriteJSONAtomic(res.FilteredPath, filtered); err != nil {
		return nil, pipeline.Wrap(pipeline.ErrTransient, "dedup", "write filtered signals", res.FilteredPath, err)
	}
	logger.Info("dedup outputs written",
		logging.String("report", req.OutputPath),
		logging.String("filtered", res.FilteredPath),
	)
	return res, nil
}

// DefaultFilteredPath places gate-filtered-<stem>.json beside the report,
// dropping a daily-scan- prefix from the signals file stem.
func DefaultFilteredPath(reportPath, signalsPath string) string {
	stem := strings.TrimSuffix(filepath.Base(signalsPath), filepath.Ext(signalsPath))
	stem = strings.TrimPrefix(stem, "daily-scan-")
	if stem == "" || stem == "." {
		stem = "signals"
	}
	return filepath.Join(filepath.Dir(reportPath), "gate-filtered-"+stem+".json")
}
