package main

import (
	"context"
	"io"

	"github.com/jonwraymond/memocache/observe"
	"github.com/jonwraymond/memocache/observe/exporters"
)

func enabled(exporter string) bool {
	return exporter != "" && exporter != "none"
}

// newObserver builds the telemetry stack. Logs and stdout exporters write to
// stderr so command output stays machine readable.
func newObserver(ctx context.Context, s settings, stderr io.Writer) (observe.Observer, error) {
	exporters.StdoutWriter = stderr

	return observe.NewObserver(ctx, observe.Config{
		ServiceName: "pagecache",
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   enabled(s.tracing),
			Exporter:  s.tracing,
			SamplePct: 1.0,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  enabled(s.metrics),
			Exporter: s.metrics,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   s.logLevel,
			Output:  stderr,
		},
	})
}
