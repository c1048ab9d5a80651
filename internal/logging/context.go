package logging

import (
	"context"
	"log/slog"

	"manifold/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldStep is the standardized structured logging key for pipeline step names.
	FieldStep = "step"
	// FieldRunID is the standardized structured logging key for invocation identifiers.
	FieldRunID = "run_id"
	// FieldDeviceID is the standardized structured logging key for capture device identifiers.
	FieldDeviceID = "device_id"
	// FieldRecordingID is the standardized structured logging key for recording identifiers.
	FieldRecordingID = "recording_id"
	// FieldEventType tags lifecycle events (step_start, step_complete, step_skipped).
	FieldEventType = "event_type"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if step, ok := services.StepFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStep, step))
	}
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	device, recording := services.SessionFromContext(ctx)
	if device != "" {
		fields = append(fields, slog.String(FieldDeviceID, device))
	}
	if recording != "" {
		fields = append(fields, slog.String(FieldRecordingID, recording))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
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
