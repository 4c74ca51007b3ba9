// Package logger enriches zap loggers with request and run correlation fields.
package logger

import (
	"context"

	applogger "github.com/smallbiznis/autobill/internal/logger"
	obscontext "github.com/smallbiznis/autobill/internal/observability/context"
	"go.uber.org/zap"
)

// FromContext returns the global logger enriched with correlation fields.
func FromContext(ctx context.Context) *zap.Logger {
	return WithContext(ctx, zap.L())
}

// WithContext adds request_id, run_id and trace fields present in ctx.
func WithContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if ctx == nil || base == nil {
		return base
	}
	fields := make([]zap.Field, 0, 2)
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if runID := obscontext.RunIDFromContext(ctx); runID != "" {
		fields = append(fields, zap.String("run_id", runID))
	}
	log := applogger.WithContext(ctx, base)
	if len(fields) == 0 {
		return log
	}
	return log.With(fields...)
}
