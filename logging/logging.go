/*
Package logging builds the process logger.

PURPOSE:
  Every component logs through one zap logger: JSON in production,
  console encoding in debug mode. WithTrace decorates a logger with
  the active span's ids so stage logs and spans line up.
*/
package logging

import (
	"context"

	"go.uber.org/zap"

	"github.com/insmag/filings-engine/trace"
)

// New builds the logger. Debug switches to the development encoder and
// enables debug-level output.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// WithTrace returns the logger carrying the context's trace and span
// ids, or the logger unchanged when no span is active.
func WithTrace(ctx context.Context, log *zap.Logger) *zap.Logger {
	traceID, spanID, ok := trace.Fields(ctx)
	if !ok {
		return log
	}
	return log.With(zap.String("trace_id", traceID), zap.String("span_id", spanID))
}
