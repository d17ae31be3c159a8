package observe

import (
	"context"
	"time"

	"github.com/jonwraymond/memocache/cache"
)

// Middleware wraps computations with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: functions returned by Instrument are safe for concurrent use
//     when the wrapped function is.
//   - Context: the span is carried in the context passed to the wrapped function.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware. Nil components are replaced with
// no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NewTracer(nil)
	}
	if metrics == nil {
		metrics = &noopMetrics{}
	}
	if logger == nil {
		logger = &noopLogger{}
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Instrument wraps fn with a span, call metrics and a completion log line.
// Applied outside a cached function, the span covers the cache lookup and
// any CacheObserver events are attached to it.
func Instrument[T any](m *Middleware, meta FuncMeta, fn cache.Func[T]) cache.Func[T] {
	return func(ctx context.Context, args cache.Args) (T, error) {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		result, err := fn(ctx, args)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordCall(ctx, meta, duration, err)

		logger := m.logger.WithFunc(meta)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		if err != nil {
			fields = append(fields,
				Field{Key: "error", Value: err.Error()},
				Field{Key: "error.type", Value: ErrorClass(err)},
			)
			logger.Error(ctx, "call failed", fields...)
		} else {
			logger.Debug(ctx, "call completed", fields...)
		}

		return result, err
	}
}
