package services

import "context"

type contextKey string

const (
	stepKey      contextKey = "step"
	runIDKey     contextKey = "run_id"
	deviceKey    contextKey = "device_id"
	recordingKey contextKey = "recording_id"
)

// WithStep annotates context with the pipeline step name.
func WithStep(ctx context.Context, step string) context.Context {
	if step == "" {
		return ctx
	}
	return context.WithValue(ctx, stepKey, step)
}

// StepFromContext returns the step name if present.
func StepFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stepKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRunID annotates context with the pipeline invocation identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the invocation identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSession annotates context with the device and recording identifiers.
func WithSession(ctx context.Context, deviceID, recordingID string) context.Context {
	if deviceID != "" {
		ctx = context.WithValue(ctx, deviceKey, deviceID)
	}
	if recordingID != "" {
		ctx = context.WithValue(ctx, recordingKey, recordingID)
	}
	return ctx
}

// SessionFromContext returns the device and recording identifiers if present.
func SessionFromContext(ctx context.Context) (deviceID, recordingID string) {
	if v, ok := ctx.Value(deviceKey).(string); ok {
		deviceID = v
	}
	if v, ok := ctx.Value(recordingKey).(string); ok {
		recordingID = v
	}
	return deviceID, recordingID
}
