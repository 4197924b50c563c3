package pipeline

import "context"

type contextKey string

const (
	runIDKey    contextKey = "run_id"
	workflowKey contextKey = "workflow"
	stageKey    contextKey = "stage"
	scanDateKey contextKey = "scan_date"
)

// WithRunID annotates context with the identifier minted for this invocation.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, runIDKey)
}

// WithWorkflow annotates context with the workflow namespace (e.g. wf1-general).
func WithWorkflow(ctx context.Context, workflow string) context.Context {
	if workflow == "" {
		return ctx
	}
	return context.WithValue(ctx, workflowKey, workflow)
}

// WorkflowFromContext returns the workflow namespace if present.
func WorkflowFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, workflowKey)
}

// WithStage annotates context with the pipeline stage name (dedup, track, correlate).
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, stageKey)
}

// WithScanDate annotates context with the scan date being processed.
func WithScanDate(ctx context.Context, date string) context.Context {
	if date == "" {
		return ctx
	}
	return context.WithValue(ctx, scanDateKey, date)
}

// ScanDateFromContext returns the scan date if present.
func ScanDateFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, scanDateKey)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
