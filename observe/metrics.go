package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/memocache/cache"
)

// Metrics records call and cache lookup metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records one invocation of a wrapped computation.
	RecordCall(ctx context.Context, meta FuncMeta, duration time.Duration, err error)

	// RecordLookup records how an invocation was served.
	RecordLookup(ctx context.Context, meta FuncMeta, kind cache.EventKind, duration time.Duration)
}

type metricsImpl struct {
	callCount      metric.Int64Counter
	errorCount     metric.Int64Counter
	callDuration   metric.Float64Histogram
	hitCount       metric.Int64Counter
	computedCount  metric.Int64Counter
	lookupDuration metric.Float64Histogram
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	m := &metricsImpl{}
	var err error

	if m.callCount, err = meter.Int64Counter(
		"cache.call.total",
		metric.WithDescription("Total number of wrapped computation calls"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}

	if m.errorCount, err = meter.Int64Counter(
		"cache.call.errors",
		metric.WithDescription("Total number of wrapped computation calls that failed"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}

	if m.callDuration, err = meter.Float64Histogram(
		"cache.call.duration_ms",
		metric.WithDescription("Wrapped computation call duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.hitCount, err = meter.Int64Counter(
		"cache.hits",
		metric.WithDescription("Calls served from the cache backend"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}

	if m.computedCount, err = meter.Int64Counter(
		"cache.computed",
		metric.WithDescription("Calls that ran the computation and stored its result"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}

	if m.lookupDuration, err = meter.Float64Histogram(
		"cache.lookup.duration_ms",
		metric.WithDescription("Time from key derivation to returned value in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func funcAttrs(meta FuncMeta) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("func.id", meta.FuncID()),
		attribute.String("func.name", meta.Name),
	}
	if meta.Scope != "" {
		attrs = append(attrs, attribute.String("func.scope", meta.Scope))
	}
	return attrs
}

// RecordCall records metrics for one invocation.
func (m *metricsImpl) RecordCall(ctx context.Context, meta FuncMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(funcAttrs(meta)...)

	m.callCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.callDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordLookup records a hit or a computed result.
func (m *metricsImpl) RecordLookup(ctx context.Context, meta FuncMeta, kind cache.EventKind, duration time.Duration) {
	attrs := append(funcAttrs(meta), attribute.String("cache.result", kind.String()))
	opt := metric.WithAttributes(attrs...)

	switch kind {
	case cache.EventHit:
		m.hitCount.Add(ctx, 1, opt)
	case cache.EventComputed:
		m.computedCount.Add(ctx, 1, opt)
	}
	m.lookupDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

type noopMetrics struct{}

func (m *noopMetrics) RecordCall(ctx context.Context, meta FuncMeta, duration time.Duration, err error) {
}

func (m *noopMetrics) RecordLookup(ctx context.Context, meta FuncMeta, kind cache.EventKind, duration time.Duration) {
}
