package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics is the write-only sink the execution engine emits into.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly; recording is fire-and-forget.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records a completed execution with its final status,
	// elapsed duration, and the number of attempts performed.
	RecordCall(ctx context.Context, tool, status string, elapsed time.Duration, attempts int)

	// RecordRetry records that a retry attempt was issued.
	RecordRetry(ctx context.Context, tool string)

	// RecordCacheHit records a result served from the cache.
	RecordCacheHit(ctx context.Context, tool string)

	// RecordError records a failed execution by failure kind.
	RecordError(ctx context.Context, tool, kind string)

	// RecordBreakerOpen records a closed -> open breaker transition.
	RecordBreakerOpen(ctx context.Context, tool string)

	// RecordBreakerState records the current breaker state for a tool
	// (0 closed, 1 open, 2 half-open).
	RecordBreakerState(ctx context.Context, tool string, state int64)
}

// otelMetrics is the OpenTelemetry implementation of Metrics.
type otelMetrics struct {
	calls        metric.Int64Counter
	retries      metric.Int64Counter
	cacheHits    metric.Int64Counter
	errs         metric.Int64Counter
	breakerOpens metric.Int64Counter
	duration     metric.Float64Histogram
	breakerState metric.Int64Gauge
}

// NewMetrics creates a Metrics sink backed by the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	calls, err := meter.Int64Counter(
		"tool.exec.calls",
		metric.WithDescription("Total number of tool executions by final status"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Counter(
		"tool.exec.retries",
		metric.WithDescription("Total number of retry attempts issued"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}

	cacheHits, err := meter.Int64Counter(
		"tool.exec.cache_hits",
		metric.WithDescription("Total number of results served from cache"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	errs, err := meter.Int64Counter(
		"tool.exec.errors",
		metric.WithDescription("Total number of failed executions by kind"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	breakerOpens, err := meter.Int64Counter(
		"tool.exec.breaker_opens",
		metric.WithDescription("Total number of circuit breaker open transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"tool.exec.duration_ms",
		metric.WithDescription("Tool execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	breakerState, err := meter.Int64Gauge(
		"tool.exec.breaker_state",
		metric.WithDescription("Current circuit breaker state per tool (0 closed, 1 open, 2 half-open)"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		calls:        calls,
		retries:      retries,
		cacheHits:    cacheHits,
		errs:         errs,
		breakerOpens: breakerOpens,
		duration:     duration,
		breakerState: breakerState,
	}, nil
}

func (m *otelMetrics) RecordCall(ctx context.Context, tool, status string, elapsed time.Duration, attempts int) {
	attrs := metric.WithAttributes(
		attribute.String("tool.name", tool),
		attribute.String("tool.status", status),
	)
	m.calls.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(elapsed)/float64(time.Millisecond),
		metric.WithAttributes(
			attribute.String("tool.name", tool),
			attribute.Int("tool.attempts", attempts),
		))
}

func (m *otelMetrics) RecordRetry(ctx context.Context, tool string) {
	m.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("tool.name", tool)))
}

func (m *otelMetrics) RecordCacheHit(ctx context.Context, tool string) {
	m.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("tool.name", tool)))
}

func (m *otelMetrics) RecordError(ctx context.Context, tool, kind string) {
	m.errs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool.name", tool),
		attribute.String("error.kind", kind),
	))
}

func (m *otelMetrics) RecordBreakerOpen(ctx context.Context, tool string) {
	m.breakerOpens.Add(ctx, 1, metric.WithAttributes(attribute.String("tool.name", tool)))
}

func (m *otelMetrics) RecordBreakerState(ctx context.Context, tool string, state int64) {
	m.breakerState.Record(ctx, state, metric.WithAttributes(attribute.String("tool.name", tool)))
}

// NewNoopMetrics returns a Metrics sink that discards everything.
func NewNoopMetrics() Metrics {
	return &noopMetrics{}
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordCall(context.Context, string, string, time.Duration, int) {}
func (m *noopMetrics) RecordRetry(context.Context, string)                            {}
func (m *noopMetrics) RecordCacheHit(context.Context, string)                         {}
func (m *noopMetrics) RecordError(context.Context, string, string)                    {}
func (m *noopMetrics) RecordBreakerOpen(context.Context, string)                      {}
func (m *noopMetrics) RecordBreakerState(context.Context, string, int64)              {}
