// Package telemetry provides the structured logger used across amireaper.
package telemetry

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTELHook adds trace and span IDs to every log entry
type OTELHook struct{}

func (h OTELHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	e.Str("trace_id", span.SpanContext().TraceID().String())
	e.Str("span_id", span.SpanContext().SpanID().String())

	if level == zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}

// Logger wraps zerolog with OTEL integration
type Logger struct {
	zerolog.Logger
}

// NewLogger creates a new logger with OTEL hooks
func NewLogger(service string) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	logger := zerolog.New(os.Stderr).
		With().
		Timestamp().
		Str("service", service).
		Logger().
		Hook(OTELHook{})

	return &Logger{Logger: logger}
}

// WithContext returns a logger with context (for trace propagation)
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logger := l.Logger.With().Ctx(ctx).Logger()
	return &logger
}

// Convenience methods for fetch operations

func (l *Logger) LogSourceComplete(ctx context.Context, source string, count int) {
	l.WithContext(ctx).Debug().
		Str("source", source).
		Int("image_ids", count).
		Msg("source fetched")
}

func (l *Logger) LogSourceError(ctx context.Context, source string, err error) {
	l.WithContext(ctx).Error().
		Err(err).
		Str("source", source).
		Msg("source fetch failed")
}

func (l *Logger) LogRunComplete(ctx context.Context, catalogSize, referenced, candidates int) {
	l.WithContext(ctx).Info().
		Int("catalog", catalogSize).
		Int("referenced", referenced).
		Int("candidates", candidates).
		Msg("scan complete")
}
