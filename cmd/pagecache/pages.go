package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/jonwraymond/memocache/cache"
	"github.com/jonwraymond/memocache/observe"
	"github.com/jonwraymond/memocache/resilience"
)

// defaultPageTimeout is bound to timeout when a caller omits it.
const defaultPageTimeout = 10 * time.Second

// maxPageBytes caps how much of a response body is read.
const maxPageBytes = 16 << 20

// pageTextSignature declares get_page_text(page_url, timeout=10s). Only
// page_url is a sign variable; the timeout does not change the page.
var pageTextSignature = cache.MustSignature("pages", "get_page_text",
	cache.Required("page_url"),
	cache.Optional("timeout", defaultPageTimeout),
)

// pageSignVariables are the arguments that identify a cached page.
var pageSignVariables = []string{"page_url"}

// statusError reports a non-2xx response.
type statusError struct {
	url  string
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.url, e.code, http.StatusText(e.code))
}

type pageFetcher struct {
	client *http.Client
	exec   *resilience.Executor
}

func newPageFetcher(client *http.Client, s settings, logger observe.Logger) *pageFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = observe.NopLogger()
	}
	logger = logger.WithFunc(observe.MetaFor(pageTextSignature))
	return &pageFetcher{
		client: client,
		exec: resilience.NewExecutor(
			resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
				MaxConcurrent: s.maxRequests,
				MaxWait:       time.Minute,
			})),
			resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
				MaxAttempts:  s.retries + 1,
				InitialDelay: 100 * time.Millisecond,
				MaxDelay:     2 * time.Second,
				Jitter:       true,
				OnRetry: func(attempt int, err error, delay time.Duration) {
					logger.Warn(context.Background(), "retrying request",
						observe.Field{Key: "attempt", Value: attempt},
						observe.Field{Key: "delay_ms", Value: delay.Milliseconds()},
						observe.Field{Key: "error", Value: err.Error()},
					)
				},
			})),
		),
	}
}

// getPageText returns the body of page_url as text.
func (f *pageFetcher) getPageText(ctx context.Context, args cache.Args) (string, error) {
	bound, err := pageTextSignature.Normalize(args)
	if err != nil {
		return "", err
	}
	url, ok := cache.Arg[string](bound, "page_url")
	if !ok || url == "" {
		return "", errors.Wrap(cache.ErrMissingArgument, "page_url must be a non-empty string")
	}
	timeout, ok := cache.Arg[time.Duration](bound, "timeout")
	if !ok || timeout <= 0 {
		timeout = defaultPageTimeout
	}

	return resilience.Do(ctx, f.exec, func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return f.get(ctx, url)
	})
}

func (f *pageFetcher) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", resilience.Permanent(errors.Wrap(err, "build request"))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		err := &statusError{url: url, code: resp.StatusCode}
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", resilience.Permanent(err)
		}
		return "", err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", errors.Wrapf(err, "read %s", url)
	}
	return string(body), nil
}
