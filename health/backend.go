package health

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jonwraymond/memocache/cache"
)

// DefaultProbeKey is written by BackendChecker. It cannot collide with a
// derived key, which is pure hex.
const DefaultProbeKey = "memocache:health:probe"

// BackendCheckerConfig configures a BackendChecker.
type BackendCheckerConfig struct {
	// Name is reported by Name(). Default: "backend"
	Name string

	// ProbeKey is the key used for the round trip. Default: DefaultProbeKey
	ProbeKey string

	// ProbeTTL is the expiry of the probe entry. Default: 10 seconds
	ProbeTTL time.Duration

	// SlowThreshold marks the backend Degraded when the round trip takes
	// longer. Zero disables it.
	SlowThreshold time.Duration

	// ReadOnly skips the round trip and only pings.
	ReadOnly bool
}

// BackendChecker checks a cache.Backend.
type BackendChecker struct {
	backend cache.Backend
	config  BackendCheckerConfig
	now     func() time.Time
}

// NewBackendChecker creates a checker for backend.
func NewBackendChecker(backend cache.Backend, config BackendCheckerConfig) *BackendChecker {
	if config.Name == "" {
		config.Name = "backend"
	}
	if config.ProbeKey == "" {
		config.ProbeKey = DefaultProbeKey
	}
	if config.ProbeTTL <= 0 {
		config.ProbeTTL = 10 * time.Second
	}
	return &BackendChecker{backend: backend, config: config, now: time.Now}
}

// Name returns the configured checker name.
func (c *BackendChecker) Name() string {
	return c.config.Name
}

// Check pings the backend if it implements Pinger, then writes a probe value
// and reads it back.
func (c *BackendChecker) Check(ctx context.Context) Result {
	start := c.now()

	if c.backend == nil {
		return Unhealthy("no backend configured", ErrCheckFailed)
	}

	details := map[string]any{"backend": fmt.Sprintf("%T", c.backend)}

	if p, ok := c.backend.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return Unhealthy("ping failed", err).WithDetails(details)
		}
		details["ping"] = "ok"
	}

	if c.config.ReadOnly {
		return Healthy("backend reachable").WithDetails(details)
	}

	want := []byte(strconv.FormatInt(start.UnixNano(), 10))
	if err := c.backend.Set(ctx, c.config.ProbeKey, want, c.config.ProbeTTL); err != nil {
		return Unhealthy("probe write failed", err).WithDetails(details)
	}

	got, found, err := c.backend.Get(ctx, c.config.ProbeKey)
	switch {
	case err != nil:
		return Unhealthy("probe read failed", err).WithDetails(details)
	case !found:
		return Unhealthy("probe value missing after write", ErrProbeMismatch).WithDetails(details)
	case !bytes.Equal(got, want):
		return Unhealthy("probe value mismatch", ErrProbeMismatch).WithDetails(details)
	}

	elapsed := c.now().Sub(start)
	details["round_trip"] = elapsed.String()

	if c.config.SlowThreshold > 0 && elapsed > c.config.SlowThreshold {
		return Degraded(fmt.Sprintf("round trip took %s", elapsed)).WithDetails(details)
	}
	return Healthy("backend read and write ok").WithDetails(details)
}

var _ Checker = (*BackendChecker)(nil)
