package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/memocache/cache"
	"github.com/jonwraymond/memocache/observe"
)

// httpClient is the client used for page requests. Tests replace it.
var httpClient = &http.Client{}

func newWrapper(s settings, backend cache.Backend, observer cache.Observer) (*cache.Wrapper, error) {
	opts := []cache.Option{
		cache.WithHash(s.hash),
		cache.WithObserver(observer),
	}
	if s.singleFlight {
		opts = append(opts, cache.WithSingleFlight())
	}
	if s.zeroAsMiss {
		opts = append(opts, cache.WithZeroAsMiss())
	}

	cfg := cache.Config{SignVariables: pageSignVariables, Expiry: s.expiry}
	if s.expiry == 0 {
		// Zero disables caching here; Config treats zero as "use the default".
		opts = append(opts, cache.WithPolicy(cache.NoCachePolicy()))
	}
	return cache.NewWrapper(backend, cfg, opts...)
}

// newPageText builds get_page_text with caching and instrumentation.
func newPageText(obs observe.Observer, w *cache.Wrapper, fetcher *pageFetcher) (cache.Func[string], error) {
	cached, err := cache.WrapCodec[string](w, pageTextSignature, fetcher.getPageText, cache.StringCodec{})
	if err != nil {
		return nil, err
	}
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return nil, err
	}
	return observe.Instrument(mw, observe.MetaFor(pageTextSignature), cached), nil
}

type fetchResult struct {
	url     string
	length  int
	elapsed time.Duration
	err     error
}

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch URL...",
		Short: "Fetch page text, serving repeated URLs from the cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			return runFetch(cmd.Context(), s, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func runFetch(ctx context.Context, s settings, urls []string, stdout, stderr io.Writer) (err error) {
	obs, err := newObserver(ctx, s, stderr)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.CombineErrors(err, obs.Shutdown(context.WithoutCancel(ctx)))
	}()
	logger := obs.Logger()

	backend, closeBackend, err := openBackend(ctx, s)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.CombineErrors(err, closeBackend())
	}()

	cacheObserver, err := observe.CacheObserverFromObserver(obs)
	if err != nil {
		return err
	}
	w, err := newWrapper(s, backend, cacheObserver)
	if err != nil {
		return err
	}
	getPageText, err := newPageText(obs, w, newPageFetcher(httpClient, s, logger))
	if err != nil {
		return err
	}

	logger.Debug(ctx, "fetching pages",
		observe.Field{Key: "backend", Value: s.backend},
		observe.Field{Key: "urls", Value: len(urls)},
		observe.Field{Key: "expiry", Value: w.Expiry().String()},
	)

	results := make([]fetchResult, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, url := range urls {
		g.Go(func() error {
			start := time.Now()
			text, err := getPageText(gctx, cache.Keywords(map[string]any{
				"page_url": url,
				"timeout":  s.timeout,
			}))
			results[i] = fetchResult{url: url, length: len(text), elapsed: time.Since(start), err: err}
			return nil
		})
	}
	_ = g.Wait()

	var failed int
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintf(stdout, "Url: %s. Error: %v\n", r.url, r.err)
			continue
		}
		fmt.Fprintf(stdout, "Url: %s. Text length: %d (%s). Total time: %s\n",
			r.url, r.length, humanize.Bytes(uint64(r.length)), r.elapsed.Round(time.Microsecond))
	}

	if failed > 0 {
		return errors.Newf("%d of %d pages failed", failed, len(urls))
	}
	return nil
}
