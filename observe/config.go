package observe

import (
	"fmt"
	"io"
	"slices"
)

// Config selects which telemetry signals an Observer produces and where
// they go.
type Config struct {
	ServiceName string
	Version     string
	Tracing     TracingConfig
	Metrics     MetricsConfig
	Logging     LoggingConfig
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled   bool
	Exporter  string  // otlp|jaeger|stdout|none
	SamplePct float64 // 0.0-1.0
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	Enabled  bool
	Exporter string // otlp|prometheus|stdout|none
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Enabled bool
	Level   string // debug|info|warn|error

	// Output receives log lines. Nil means stderr.
	Output io.Writer
}

// Validate reports the first invalid setting. Settings of a disabled signal
// are not checked.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}

	if t := c.Tracing; t.Enabled {
		if err := oneOf(ErrInvalidTracingExporter, t.Exporter, ValidTracingExporters); err != nil {
			return err
		}
		if t.SamplePct < MinSamplePct || t.SamplePct > MaxSamplePct {
			return fmt.Errorf("%w, got: %f", ErrInvalidSamplePct, t.SamplePct)
		}
	}

	if c.Metrics.Enabled {
		if err := oneOf(ErrInvalidMetricsExporter, c.Metrics.Exporter, ValidMetricsExporters); err != nil {
			return err
		}
	}

	if c.Logging.Enabled {
		if err := oneOf(ErrInvalidLogLevel, c.Logging.Level, ValidLogLevels); err != nil {
			return err
		}
	}

	return nil
}

func oneOf(sentinel error, value string, valid []string) error {
	if slices.Contains(valid, value) {
		return nil
	}
	return fmt.Errorf("%w: %q", sentinel, value)
}
