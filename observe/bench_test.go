package observe

import (
	"context"
	"io"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/jonwraymond/memocache/cache"
)

// BenchmarkLogger_Info measures logging throughput.
func BenchmarkLogger_Info(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info(ctx, "benchmark message", Field{Key: "iteration", Value: i})
	}
}

// BenchmarkLogger_WithFunc_ThenLog measures scoping a logger and logging.
func BenchmarkLogger_WithFunc_ThenLog(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	ctx := context.Background()
	meta := FuncMeta{Scope: "pages", Name: "get_page_text"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.WithFunc(meta).Info(ctx, "m", Field{Key: "duration_ms", Value: 1.0})
	}
}

// BenchmarkLogger_LevelFiltering measures filtered-out calls.
func BenchmarkLogger_LevelFiltering(b *testing.B) {
	logger := NewLoggerWithWriter("error", io.Discard)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Debug(ctx, "filtered")
	}
}

// BenchmarkTracer_StartEndSpan measures span overhead.
func BenchmarkTracer_StartEndSpan(b *testing.B) {
	tp := sdktrace.NewTracerProvider()
	tr := NewTracer(tp.Tracer("bench"))
	ctx := context.Background()
	meta := FuncMeta{Name: "f"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, span := tr.StartSpan(ctx, meta)
		tr.EndSpan(span, nil)
	}
}

// BenchmarkCacheObserver_Observe measures per-event overhead.
func BenchmarkCacheObserver_Observe(b *testing.B) {
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	m, err := newMetrics(mp.Meter("bench"))
	if err != nil {
		b.Fatal(err)
	}
	obs := NewCacheObserver(NewLoggerWithWriter("info", io.Discard), m)
	ctx := context.Background()
	ev := cache.Event{Kind: cache.EventHit, Name: "f", Identity: "bench.f", Key: "k", Duration: time.Millisecond}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		obs.Observe(ctx, ev)
	}
}

// BenchmarkInstrument measures middleware overhead around a trivial function.
func BenchmarkInstrument(b *testing.B) {
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	m, err := newMetrics(mp.Meter("bench"))
	if err != nil {
		b.Fatal(err)
	}
	mw := NewMiddleware(NewTracer(sdktrace.NewTracerProvider().Tracer("bench")), m, NewLoggerWithWriter("info", io.Discard))
	fn := Instrument(mw, FuncMeta{Name: "f"}, func(context.Context, cache.Args) (int, error) {
		return 1, nil
	})
	ctx := context.Background()
	args := cache.Call()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = fn(ctx, args)
	}
}

// BenchmarkConfig_Validate measures validation cost.
func BenchmarkConfig_Validate(b *testing.B) {
	cfg := Config{
		ServiceName: "bench",
		Tracing:     TracingConfig{Enabled: true, Exporter: "otlp", SamplePct: 0.5},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "prometheus"},
		Logging:     LoggingConfig{Enabled: true, Level: "info"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cfg.Validate()
	}
}
