package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy selects how the delay grows between attempts.
type BackoffStrategy int

const (
	// BackoffExponential multiplies the delay by Multiplier after each attempt.
	BackoffExponential BackoffStrategy = iota
	// BackoffLinear adds InitialDelay after each attempt.
	BackoffLinear
	// BackoffConstant waits InitialDelay every time.
	BackoffConstant
)

// base returns the delay after the given failed attempt (1-based), before
// capping and jitter.
func (s BackoffStrategy) base(initial time.Duration, multiplier float64, attempt int) time.Duration {
	switch s {
	case BackoffConstant:
		return initial
	case BackoffLinear:
		return initial * time.Duration(attempt)
	default:
		return time.Duration(float64(initial) * math.Pow(multiplier, float64(attempt-1)))
	}
}

// RetryConfig configures a Retry. Zero fields take the listed defaults.
type RetryConfig struct {
	// MaxAttempts counts the first call. Default: 3
	MaxAttempts int

	// InitialDelay is the wait after the first failure. Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps any single wait. Default: 30s
	MaxDelay time.Duration

	// Multiplier applies to BackoffExponential. Default: 2.0
	Multiplier float64

	// Strategy defaults to BackoffExponential.
	Strategy BackoffStrategy

	// Jitter adds up to 25% to each wait.
	Jitter bool

	// RetryIf decides whether an error is worth another attempt.
	// Default: DefaultRetryIf
	RetryIf func(err error) bool

	// OnRetry runs before each wait with the failed attempt number.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry re-runs an operation with backoff until it succeeds, fails with an
// error RetryIf rejects, or runs out of attempts.
type Retry struct {
	config RetryConfig
}

// NewRetry applies defaults to config and returns a Retry.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = DefaultRetryIf
	}
	return &Retry{config: config}
}

// DefaultRetryIf retries any error that is not Permanent and not a
// cancellation of the caller's context.
func DefaultRetryIf(err error) bool {
	if err == nil || IsPermanent(err) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

// Execute runs op until it succeeds or retrying stops. It returns the error
// of the last attempt; a Permanent error is returned unwrapped. If ctx ends
// during a wait, ctx.Err() is returned.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		var p *permanentError
		if errors.As(err, &p) {
			return p.err
		}
		if attempt >= r.config.MaxAttempts || !r.config.RetryIf(err) {
			return err
		}

		delay := r.delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// delay returns the wait after the given failed attempt.
func (r *Retry) delay(attempt int) time.Duration {
	d := min(r.config.Strategy.base(r.config.InitialDelay, r.config.Multiplier, attempt), r.config.MaxDelay)

	if r.config.Jitter && d >= 4 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		d += time.Duration(rand.Int64N(int64(d / 4)))
	}
	return d
}

// Config returns the effective configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
