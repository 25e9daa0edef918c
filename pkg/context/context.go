// Package context carries run tracing values through a release.
package context

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ctxKey values must stay distinct and non-zero-size; pointers to
// zero-size values are not guaranteed to differ.
type ctxKey int

const (
	runIDKey ctxKey = iota
	stageKey
	startTimeKey
)

const (
	unknownRun   = "unknown-run"
	unknownStage = "unknown-stage"
)

// WithRunID adds a run ID to the context, generating one if empty.
func WithRunID(parent context.Context, runID string) context.Context {
	if runID == "" {
		runID = GenerateRunID()
	}
	return context.WithValue(parent, runIDKey, runID)
}

// GetRunID retrieves the run ID from context
func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok && id != "" {
		return id
	}
	return unknownRun
}

// WithStage records the pipeline stage currently executing.
func WithStage(parent context.Context, stage string) context.Context {
	return context.WithValue(parent, stageKey, stage)
}

// GetStage retrieves the stage name from context
func GetStage(ctx context.Context) string {
	if s, ok := ctx.Value(stageKey).(string); ok && s != "" {
		return s
	}
	return unknownStage
}

// WithStartTime adds the operation start time to the context
func WithStartTime(parent context.Context, startTime time.Time) context.Context {
	return context.WithValue(parent, startTimeKey, startTime)
}

// GetStartTime retrieves the start time, or the zero time if none was set.
func GetStartTime(ctx context.Context) time.Time {
	if t, ok := ctx.Value(startTimeKey).(time.Time); ok {
		return t
	}
	return time.Time{}
}

// GetDuration returns the time elapsed since the start time, or zero.
func GetDuration(ctx context.Context) time.Duration {
	start := GetStartTime(ctx)
	if start.IsZero() {
		return 0
	}
	return time.Since(start)
}

// GenerateRunID creates a new unique run ID
func GenerateRunID() string {
	return "run_" + uuid.New().String()
}

// ShortRunID returns the first block of a run ID's uuid, suitable for
// directory names.
func ShortRunID(runID string) string {
	id := runID
	if len(id) > 4 && id[:4] == "run_" {
		id = id[4:]
	}
	if len(id) > 8 {
		id = id[:8]
	}
	return id
}

// EnrichContext adds a run ID (if missing) and a fresh start time.
func EnrichContext(parent context.Context) context.Context {
	ctx := parent
	if GetRunID(ctx) == unknownRun {
		ctx = WithRunID(ctx, "")
	}
	return WithStartTime(ctx, time.Now())
}

// HasRunID reports whether a run ID is present.
func HasRunID(ctx context.Context) bool {
	return GetRunID(ctx) != unknownRun
}

// HasStage reports whether a stage name is present.
func HasStage(ctx context.Context) bool {
	return GetStage(ctx) != unknownStage
}
