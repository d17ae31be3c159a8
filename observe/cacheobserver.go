package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/memocache/cache"
)

// Log messages emitted by CacheObserver.
const (
	MsgCachedValue   = "cached value returned"
	MsgComputedValue = "computed value returned"
)

// CacheObserver reports cache.Wrapper events as log lines, metrics and span
// events on the span found in the invocation context.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: never fails and never blocks the invocation on telemetry.
type CacheObserver struct {
	logger  Logger
	metrics Metrics
}

var _ cache.Observer = (*CacheObserver)(nil)

// NewCacheObserver creates a CacheObserver. Nil arguments disable that
// signal.
func NewCacheObserver(logger Logger, metrics Metrics) *CacheObserver {
	if logger == nil {
		logger = &noopLogger{}
	}
	if metrics == nil {
		metrics = &noopMetrics{}
	}
	return &CacheObserver{logger: logger, metrics: metrics}
}

// CacheObserverFromObserver builds a CacheObserver from an Observer's
// logger and meter.
func CacheObserverFromObserver(obs Observer) (*CacheObserver, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewCacheObserver(obs.Logger(), metrics), nil
}

// Observe implements cache.Observer.
func (o *CacheObserver) Observe(ctx context.Context, ev cache.Event) {
	meta := metaForEvent(ev)

	o.metrics.RecordLookup(ctx, meta, ev.Kind, ev.Duration)

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.Bool("cache.hit", ev.Kind == cache.EventHit))
		span.AddEvent("cache."+ev.Kind.String(), trace.WithAttributes(
			attribute.String("cache.key", ev.Key),
		))
	}

	msg := MsgComputedValue
	if ev.Kind == cache.EventHit {
		msg = MsgCachedValue
	}
	o.logger.WithFunc(meta).Info(ctx, msg,
		Field{Key: "cache.key", Value: ev.Key},
		Field{Key: "duration_ms", Value: float64(ev.Duration.Milliseconds())},
	)
}
