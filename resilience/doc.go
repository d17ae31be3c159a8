// Package resilience provides retry, timeout and concurrency limits for
// computations that call out to slow or flaky services.
//
// The cache wrapper never retries on its own: a backend or computation
// error is returned to the caller unchanged. Resilience belongs inside the
// computation, so that only a successful result is ever cached.
//
//	executor := resilience.NewExecutor(
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
//	        MaxAttempts:  3,
//	        InitialDelay: 200 * time.Millisecond,
//	    })),
//	    resilience.WithTimeout(10*time.Second),
//	    resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
//	        MaxConcurrent: 4,
//	        MaxWait:       time.Minute,
//	    })),
//	)
//
//	body, err := resilience.Do(ctx, executor, func(ctx context.Context) (string, error) {
//	    return fetch(ctx, url)
//	})
//
// Errors wrapped with Permanent (a 404, a malformed URL) stop retrying
// immediately.
package resilience
