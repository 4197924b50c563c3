package logging

import (
	"context"
	"log/slog"

	"envscan/internal/pipeline"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one gate or tracker invocation.
	FieldRunID = "run_id"
	// FieldWorkflow is the workflow namespace (wf1-general, wf2-arxiv, ...).
	FieldWorkflow = "workflow"
	// FieldStage is the pipeline stage name.
	FieldStage    = "stage"
	FieldScanDate = "scan_date"
	// FieldSignalID and FieldThreadID name the entities a decision applies to.
	FieldSignalID = "signal_id"
	FieldThreadID = "thread_id"
	// FieldEventType is a stable machine-readable name for the logged event.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to do next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact       = "impact"
	FieldDecisionType = "decision_type"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := pipeline.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if wf, ok := pipeline.WorkflowFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldWorkflow, wf))
	}
	if stage, ok := pipeline.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if date, ok := pipeline.ScanDateFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldScanDate, date))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
