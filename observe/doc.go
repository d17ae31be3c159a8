// Package observe provides observability for cached computations.
//
// It supplies a JSON structured logger built on zap that correlates entries
// with the active span, OpenTelemetry tracing and metrics,
// a CacheObserver that reports cache.Wrapper hit and computed events, and
// Instrument, which wraps a cache.Func with a span, metrics and a log line.
// It performs no I/O beyond exporter setup and the logger's writer.
package observe
