package observe

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/memocache/cache"
)

// Tracer opens one span per invocation of a wrapped computation.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts the span for one invocation.
	StartSpan(ctx context.Context, meta FuncMeta) (context.Context, trace.Span)

	// EndSpan ends the span. A non-nil err marks it failed and classified.
	EndSpan(span trace.Span, err error)
}

// Error classes recorded as the error.type span attribute.
const (
	ErrorClassArgument    = "argument"
	ErrorClassKey         = "key"
	ErrorClassCodec       = "codec"
	ErrorClassConfig      = "config"
	ErrorClassCanceled    = "canceled"
	ErrorClassComputation = "computation"
)

// ErrorClass tells apart failures raised by the caching layer from failures
// of the computation or backend it wraps. It returns "" for a nil error.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorClassCanceled
	case errors.Is(err, cache.ErrMissingArgument),
		errors.Is(err, cache.ErrTooManyArguments),
		errors.Is(err, cache.ErrUnexpectedArgument):
		return ErrorClassArgument
	case errors.Is(err, cache.ErrKeyDerivation), errors.Is(err, cache.ErrInvalidKey):
		return ErrorClassKey
	case errors.Is(err, cache.ErrEncode), errors.Is(err, cache.ErrDecode):
		return ErrorClassCodec
	case errors.Is(err, cache.ErrConfiguration):
		return ErrorClassConfig
	default:
		return ErrorClassComputation
	}
}

type otelTracer struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer over t. A nil t yields a tracer whose spans
// record nothing.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		t = tracenoop.NewTracerProvider().Tracer("noop")
	}
	return &otelTracer{tracer: t}
}

// StartSpan names the span after the computation identity. cache.hit starts
// false; a CacheObserver sets it when the lookup is served from the backend.
func (t *otelTracer) StartSpan(ctx context.Context, meta FuncMeta) (context.Context, trace.Span) {
	attrs := make([]attribute.KeyValue, 0, 5)
	attrs = append(attrs,
		attribute.String("func.id", meta.FuncID()),
		attribute.String("func.name", meta.Name),
		attribute.Bool("cache.hit", false),
	)
	if meta.Scope != "" {
		attrs = append(attrs, attribute.String("func.scope", meta.Scope))
	}
	if meta.Version != "" {
		attrs = append(attrs, attribute.String("func.version", meta.Version))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *otelTracer) EndSpan(span trace.Span, err error) {
	defer span.End()

	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.SetAttributes(attribute.String("error.type", ErrorClass(err)))
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
}
